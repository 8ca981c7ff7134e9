package execctx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/BaSui01/pathflow/types"
)

// Snapshot is an immutable, ordered view of an execution context. The zero
// value is an empty snapshot.
type Snapshot struct {
	runID   string
	records []Record
	index   map[string]int
	vars    map[string]any
}

// NewSnapshot builds a snapshot from records in order. Later duplicates are
// dropped.
func NewSnapshot(runID string, records []Record, vars map[string]any) Snapshot {
	s := Snapshot{
		runID: runID,
		index: make(map[string]int, len(records)),
		vars:  make(map[string]any, len(vars)),
	}
	for k, v := range vars {
		s.vars[k] = v
	}
	for _, r := range records {
		if _, dup := s.index[r.AgentID]; dup {
			continue
		}
		s.index[r.AgentID] = len(s.records)
		s.records = append(s.records, r.clone())
	}
	return s
}

// RunID returns the run identifier.
func (s Snapshot) RunID() string { return s.runID }

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.records) }

// Get returns the record for id.
func (s Snapshot) Get(id string) (Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i].clone(), true
}

// Records returns the records in insertion order.
func (s Snapshot) Records() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// IDs returns the record identifiers in insertion order.
func (s Snapshot) IDs() []string {
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.AgentID
	}
	return out
}

// Variables returns a copy of the run variables.
func (s Snapshot) Variables() map[string]any {
	out := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// =============================================================================
// Enrichment
// =============================================================================

// Enrich returns a copy of s in which every record exposes its primary output
// at Response when one can be found. Payloads are never replaced. Records
// without a primary output are marked Incomplete. Enrich(Enrich(s)) equals
// Enrich(s).
func Enrich(s Snapshot) Snapshot {
	out := Snapshot{
		runID:   s.runID,
		records: make([]Record, len(s.records)),
		index:   make(map[string]int, len(s.records)),
		vars:    make(map[string]any, len(s.vars)),
	}
	for k, v := range s.vars {
		out.vars[k] = v
	}
	for i, r := range s.records {
		out.records[i] = enrichRecord(r.clone())
		out.index[r.AgentID] = i
	}
	return out
}

// Enrich is a method form of Enrich.
func (s Snapshot) Enrich() Snapshot {
	return Enrich(s)
}

func enrichRecord(r Record) Record {
	if r.Response != nil {
		r.Incomplete = false
		return r
	}
	if primary, ok := primaryOutput(r.Payload); ok {
		r.Response = primary
		r.Incomplete = false
		return r
	}
	r.Incomplete = true
	return r
}

// primaryOutput finds the main output of a payload: the payload itself when
// it is text, a direct "response" field, or a "response" nested one level
// inside a "result" wrapper.
func primaryOutput(payload any) (any, bool) {
	switch p := payload.(type) {
	case string:
		return p, true
	case []byte:
		return string(p), true
	case map[string]any:
		if v, ok := p["response"]; ok && v != nil {
			return v, true
		}
		switch inner := p["result"].(type) {
		case string:
			return inner, true
		case map[string]any:
			if v, ok := inner["response"]; ok && v != nil {
				return v, true
			}
		}
	case map[string]string:
		if v, ok := p["response"]; ok {
			return v, true
		}
		if v, ok := p["result"]; ok {
			return v, true
		}
	}
	return nil, false
}

// =============================================================================
// Lookup and template rendering
// =============================================================================

// Document returns the enriched JSON view used by Lookup:
//
//	{"<id>": {"response", "result", "status", ...}, "input": ..., "vars": {...}, "run": {"id": ...}}
func (s Snapshot) Document() ([]byte, error) {
	enriched := Enrich(s)
	doc := make(map[string]any, len(enriched.records)+3)
	for _, r := range enriched.records {
		view := map[string]any{
			"agent_id":   r.AgentID,
			"status":     r.Status,
			"result":     r.Payload,
			"incomplete": r.Incomplete,
		}
		if r.Response != nil {
			view["response"] = r.Response
		}
		if r.Error != "" {
			view["error"] = r.Error
		}
		if len(r.Metadata) > 0 {
			view["metadata"] = r.Metadata
		}
		if len(r.Capabilities) > 0 {
			view["capabilities"] = r.Capabilities
		}
		doc[r.AgentID] = view
	}
	if in, ok := enriched.vars[KeyInput]; ok {
		doc[KeyInput] = in
	}
	doc[KeyVars] = enriched.vars
	doc[KeyRun] = map[string]any{"id": enriched.runID}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "execution context is not serializable").WithCause(err)
	}
	return raw, nil
}

// Lookup resolves a dotted path against the enriched document. A missing
// path, or the response of an incomplete record, fails with
// TEMPLATE_MISSING_FIELD.
func (s Snapshot) Lookup(path string) (gjson.Result, error) {
	doc, err := s.Document()
	if err != nil {
		return gjson.Result{}, err
	}
	return s.lookupIn(doc, path)
}

func (s Snapshot) lookupIn(doc []byte, path string) (gjson.Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return gjson.Result{}, types.NewError(types.ErrMissingField, "empty lookup path")
	}
	head, rest, _ := strings.Cut(path, ".")

	res := gjson.GetBytes(doc, path)
	if res.Exists() {
		return res, nil
	}

	if r, ok := s.Get(head); ok {
		if strings.HasPrefix(rest, "response") && enrichRecord(r).Incomplete {
			return gjson.Result{}, types.NewError(types.ErrMissingField,
				fmt.Sprintf("record has no primary output for %q", path)).WithAgent(head)
		}
		return gjson.Result{}, types.NewError(types.ErrMissingField,
			fmt.Sprintf("field %q not found", path)).WithAgent(head)
	}
	return gjson.Result{}, types.NewError(types.ErrMissingField,
		fmt.Sprintf("no record or variable for %q", path)).WithAgent(head)
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Render substitutes every {{ path }} in tmpl. Strings are inserted as-is,
// other values as JSON. The first unresolved placeholder aborts rendering.
func (s Snapshot) Render(tmpl string) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	doc, err := s.Document()
	if err != nil {
		return "", err
	}

	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		if firstErr != nil {
			return match
		}
		path := placeholderPattern.FindStringSubmatch(match)[1]
		res, err := s.lookupIn(doc, path)
		if err != nil {
			firstErr = err
			return match
		}
		if res.Type == gjson.String {
			return res.Str
		}
		return res.Raw
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Placeholders lists the lookup paths referenced by tmpl in order.
func Placeholders(tmpl string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(tmpl, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// MarshalJSON encodes the snapshot as its run id, records and variables.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID     string         `json:"run_id"`
		Records   []Record       `json:"records"`
		Variables map[string]any `json:"variables,omitempty"`
	}{
		RunID:     s.runID,
		Records:   s.records,
		Variables: s.vars,
	})
}
