package discovery

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/pathflow/types"
)

// CandidateFromPayload converts a proposer's result payload into a
// candidate. Accepted shapes: *Candidate, *ValidatedPath, or a map holding
// "target" (list of IDs) with optional "score" and "rationale", possibly
// wrapped under "result" or "candidate". A nil return with a nil error means
// the proposer offered nothing.
func CandidateFromPayload(payload any, scopeID string) (*Candidate, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case *Candidate:
		return p, nil
	case *ValidatedPath:
		return p.Candidate(), nil
	case map[string]any:
		if inner, ok := p["candidate"]; ok {
			return CandidateFromPayload(inner, scopeID)
		}
		target, hasTarget := p["target"]
		if !hasTarget {
			if inner, ok := p["result"]; ok {
				return CandidateFromPayload(inner, scopeID)
			}
			return nil, nil
		}
		ids, err := toStringSlice(target)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidConfig, "proposer target is not a list of identifiers").WithCause(err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		score, _ := toFloat(p["score"])
		rationale, _ := p["rationale"].(string)
		return NewCandidate(scopeID, ids, nil, score, rationale)
	case []string:
		if len(p) == 0 {
			return nil, nil
		}
		return NewCandidate(scopeID, p, nil, 0, "")
	case []any:
		ids, err := toStringSlice(p)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return NewCandidate(scopeID, ids, nil, 0, "")
	case string:
		// JSON text emitted by model-backed proposers.
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			return nil, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			return nil, types.NewError(types.ErrInvalidConfig, "proposer output is not a path").WithCause(err)
		}
		return CandidateFromPayload(decoded, scopeID)
	default:
		return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("unsupported proposer payload %T", payload))
	}
}

// ParseVerdict converts a validator's result payload into a verdict.
// Accepted shapes: Verdict, *Verdict, or a map with one of
// accepted/valid/approved and one of feedback/reason, possibly wrapped under
// "result". Text payloads starting with APPROVED or ACCEPTED accept.
func ParseVerdict(payload any) (Verdict, error) {
	switch p := payload.(type) {
	case Verdict:
		return p, nil
	case *Verdict:
		if p == nil {
			return Verdict{}, types.NewError(types.ErrInvalidConfig, "validator returned a nil verdict")
		}
		return *p, nil
	case map[string]any:
		for _, key := range []string{"accepted", "valid", "approved"} {
			if raw, ok := p[key]; ok {
				accepted, ok := raw.(bool)
				if !ok {
					return Verdict{}, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("validator field %q is not a boolean", key))
				}
				v := Verdict{Accepted: accepted}
				for _, fk := range []string{"feedback", "reason"} {
					if s, ok := p[fk].(string); ok && s != "" {
						v.Feedback = s
						break
					}
				}
				return v, nil
			}
		}
		if inner, ok := p["result"]; ok {
			return ParseVerdict(inner)
		}
		return Verdict{}, types.NewError(types.ErrInvalidConfig, "validator payload has no verdict field")
	case string:
		text := strings.TrimSpace(p)
		upper := strings.ToUpper(text)
		switch {
		case strings.HasPrefix(upper, "APPROVED"), strings.HasPrefix(upper, "ACCEPTED"):
			return Verdict{Accepted: true, Feedback: text}, nil
		case strings.HasPrefix(upper, "REJECTED"), strings.HasPrefix(upper, "DENIED"):
			return Verdict{Accepted: false, Feedback: text}, nil
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			return ParseVerdict(decoded)
		}
		return Verdict{}, types.NewError(types.ErrInvalidConfig, "validator text has no verdict")
	default:
		return Verdict{}, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("unsupported validator payload %T", payload))
	}
}

func toStringSlice(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %v is %T, not string", item, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
