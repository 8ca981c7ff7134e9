package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/config"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow"
	"github.com/BaSui01/pathflow/workflow/dsl"
)

// keyValues collects repeatable name=value flags.
type keyValues map[string]string

func (kv keyValues) String() string {
	parts := make([]string, 0, len(kv))
	for k, v := range kv {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (kv keyValues) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	kv[strings.TrimSpace(name)] = value
	return nil
}

// common are the flags shared by the workflow commands.
type common struct {
	configPath   string
	workflowPath string
	sets         keyValues
}

func newFlagSet(name string, stderr io.Writer, c *common, withWorkflow bool) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.configPath, "config", "", "Path to config file")
	if withWorkflow {
		c.sets = keyValues{}
		fs.StringVar(&c.workflowPath, "workflow", "", "Path to workflow definition")
		fs.Var(c.sets, "set", "Override a workflow variable (name=value)")
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func (c *common) loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if c.configPath != "" {
		loader = loader.WithConfigPath(c.configPath)
	}
	return loader.Load()
}

func (c *common) parseWorkflow() (*workflow.GraphDefinition, error) {
	if c.workflowPath == "" {
		return nil, fmt.Errorf("%w: -workflow is required", errUsage)
	}
	p := dsl.NewParser()
	for name, value := range c.sets {
		p = p.WithVariable(name, value)
	}
	return p.ParseFile(c.workflowPath)
}

// =============================================================================
// run
// =============================================================================

type runOutput struct {
	RunID     string          `json:"run_id"`
	Workflow  string          `json:"workflow"`
	Status    string          `json:"status"`
	Response  any             `json:"response,omitempty"`
	Records   []string        `json:"records"`
	ErrorCode types.ErrorCode `json:"error_code,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c common
	vars := keyValues{}
	fs := newFlagSet("run", stderr, &c, true)
	input := fs.String("input", "", "Run input")
	timeout := fs.Duration("timeout", 0, "Bound the whole run (0 = none)")
	fs.Var(vars, "var", "Run variable exposed as vars.<name> (name=value)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	def, err := c.parseWorkflow()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, appOptions{runtime: true, history: true})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			logger.Warn("shutdown failed", zap.Error(cerr))
		}
	}()

	w, err := workflow.Build(def, a.options())
	if err != nil {
		return err
	}

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	runVars := make(map[string]any, len(vars))
	for k, v := range vars {
		runVars[k] = v
	}
	res, runErr := w.Run(ctx, *input, runVars)

	out := runOutput{Workflow: w.ID(), Records: []string{}}
	if res != nil {
		out.RunID = res.RunID
		out.Status = string(res.Status)
		if res.Context != nil {
			out.Records = res.Context.Snapshot().IDs()
		}
		if resp, ok := res.Response(); ok {
			out.Response = resp
		}
	}
	if runErr != nil {
		out.ErrorCode = types.GetErrorCode(runErr)
		out.Error = runErr.Error()
	}
	if err := writeJSON(stdout, out); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", out.Status, runErr)
	}
	return nil
}

// =============================================================================
// validate
// =============================================================================

func cmdValidate(args []string, stdout, stderr io.Writer) error {
	var c common
	fs := newFlagSet("validate", stderr, &c, true)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	def, err := c.parseWorkflow()
	if err != nil {
		return err
	}
	w, err := workflow.Build(def, workflow.Options{})
	if err != nil {
		return err
	}
	scopes, defs := w.Registry().Stats()
	fmt.Fprintf(stdout, "ok: workflow %q, %d steps, %d agents in %d scopes\n", w.ID(), len(w.Steps()), defs, scopes)
	return nil
}

// =============================================================================
// discover
// =============================================================================

type candidateOutput struct {
	Agents    []string `json:"agents"`
	Score     float64  `json:"score"`
	Covered   []string `json:"covered"`
	Missing   []string `json:"missing,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
}

func cmdDiscover(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c common
	fs := newFlagSet("discover", stderr, &c, true)
	scopeID := fs.String("scope", registry.TopScopeID, "Scope to search")
	caps := fs.String("capabilities", "", "Comma separated required capabilities")
	goal := fs.String("goal", "", "Goal text; capability names in it are used when -capabilities is empty")
	maxCandidates := fs.Int("max", 0, "Maximum candidates (0 = configured default)")
	exclude := fs.String("exclude", "", "Comma separated agent ids to exclude")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	def, err := c.parseWorkflow()
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()
	a := &app{cfg: cfg, logger: logger}
	w, err := workflow.Build(def, a.options())
	if err != nil {
		return err
	}

	scope, ok := w.Registry().Scope(*scopeID)
	if !ok {
		return types.NewError(types.ErrInvalidScope, fmt.Sprintf("scope %q not found", *scopeID)).WithScope(*scopeID)
	}
	query := &discovery.Query{
		Goal:          *goal,
		MaxCandidates: *maxCandidates,
		Exclude:       splitList(*exclude),
	}
	for _, cp := range splitList(*caps) {
		query.RequiredCapabilities = append(query.RequiredCapabilities, types.Capability(cp))
	}

	candidates, err := w.Scout().Discover(ctx, scope, query)
	if err != nil {
		return err
	}
	out := make([]candidateOutput, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, candidateOutput{
			Agents:    cand.Agents(),
			Score:     cand.Score(),
			Covered:   capStrings(cand.Covered()),
			Missing:   capStrings(cand.Missing()),
			Rationale: cand.Rationale(),
		})
	}
	return writeJSON(stdout, out)
}

// =============================================================================
// history
// =============================================================================

type historyOutput struct {
	RunID      string          `json:"run_id"`
	WorkflowID string          `json:"workflow_id"`
	Status     string          `json:"status"`
	StartTime  time.Time       `json:"start_time"`
	Duration   string          `json:"duration"`
	Steps      int             `json:"steps"`
	ErrorCode  types.ErrorCode `json:"error_code,omitempty"`
}

func cmdHistory(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c common
	fs := newFlagSet("history", stderr, &c, false)
	runID := fs.String("run", "", "Show one run in full")
	workflowID := fs.String("workflow", "", "List runs of a workflow")
	status := fs.String("status", "", "List runs with a status")
	since := fs.Duration("since", 0, "List runs started within this duration")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *runID == "" && *workflowID == "" && *status == "" && *since == 0 {
		return fmt.Errorf("%w: one of -run, -workflow, -status or -since is required", errUsage)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger, appOptions{history: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	if *runID != "" {
		h, err := a.runs.Get(ctx, *runID)
		if err != nil {
			return err
		}
		return writeJSON(stdout, h)
	}

	var hs []*workflow.ExecutionHistory
	switch {
	case *workflowID != "":
		hs, err = a.runs.ListByWorkflow(ctx, *workflowID)
	case *status != "":
		hs, err = a.runs.ListByStatus(ctx, workflow.ExecutionStatus(*status))
	default:
		now := time.Now()
		hs, err = a.runs.ListByTimeRange(ctx, now.Add(-*since), now)
	}
	if err != nil {
		return err
	}

	out := make([]historyOutput, 0, len(hs))
	for _, h := range hs {
		out = append(out, historyOutput{
			RunID:      h.RunID,
			WorkflowID: h.WorkflowID,
			Status:     string(h.GetStatus()),
			StartTime:  h.StartTime,
			Duration:   h.Duration.String(),
			Steps:      len(h.GetSteps()),
			ErrorCode:  h.ErrorCode,
		})
	}
	return writeJSON(stdout, out)
}

// =============================================================================
// helpers
// =============================================================================

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func capStrings(caps []types.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}
