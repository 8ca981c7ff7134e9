package dsl

import (
	"fmt"
	"strings"

	"github.com/BaSui01/pathflow/workflow/execctx"
)

// Validator DSL 验证器
type Validator struct{}

// NewValidator 创建验证器
func NewValidator() *Validator {
	return &Validator{}
}

// Validate 验证 DSL 定义，返回全部问题
func (v *Validator) Validate(dsl *GraphDSL) []error {
	var errs []error

	// 基础字段验证
	if dsl.Version == "" {
		errs = append(errs, fmt.Errorf("version is required"))
	}
	if dsl.Name == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if len(dsl.Steps) == 0 {
		errs = append(errs, fmt.Errorf("steps must list at least one agent"))
	}
	if len(dsl.Agents) == 0 {
		errs = append(errs, fmt.Errorf("agents must have at least one definition"))
	}

	errs = append(errs, v.validateScope("root", dsl.Agents, dsl)...)

	// 步骤只能引用顶层 agent
	top := make(map[string]bool, len(dsl.Agents))
	for _, a := range dsl.Agents {
		top[a.ID] = true
	}
	seen := make(map[string]bool, len(dsl.Steps))
	for _, id := range dsl.Steps {
		if !top[id] {
			errs = append(errs, fmt.Errorf("step %q is not a top-level agent", id))
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("step %q listed twice", id))
		}
		seen[id] = true
	}
	return errs
}

// validateScope 验证同一作用域内的定义
func (v *Validator) validateScope(scope string, agents []AgentDef, dsl *GraphDSL) []error {
	var errs []error
	ids := make(map[string]bool, len(agents))

	for _, a := range agents {
		where := scope + "/" + a.ID
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("%s: agent id is required", scope))
			continue
		}
		if ids[a.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate agent id %q", scope, a.ID))
		}
		ids[a.ID] = true
		if execctx.IsReserved(a.ID) {
			errs = append(errs, fmt.Errorf("%s: %q is a reserved id", where, a.ID))
		}
		if a.Kind == "" {
			errs = append(errs, fmt.Errorf("%s: kind is required", where))
		}

		switch {
		case constructKinds[a.Kind]:
			if a.Kind == "loop" && len(a.Agents) < 2 {
				errs = append(errs, fmt.Errorf("%s: loop needs a proposer and a validator", where))
			}
			if a.Kind == "fork" && len(a.Agents) == 0 {
				errs = append(errs, fmt.Errorf("%s: fork needs at least one branch", where))
			}
			errs = append(errs, v.validateScope(where, a.Agents, dsl)...)
		case len(a.Agents) > 0:
			errs = append(errs, fmt.Errorf("%s: kind %q cannot declare nested agents", where, a.Kind))
		}

		if a.Kind == "path_executor" {
			if from, _ := a.Config["path_from"].(string); !strings.Contains(from, ".result.") {
				errs = append(errs, fmt.Errorf("%s: path_from must look like <emitter>.result.<proposer>", where))
			}
		}

		if a.When != "" {
			if _, err := scan(a.When); err != nil {
				errs = append(errs, fmt.Errorf("%s: when: %w", where, err))
			}
		}
		for _, ref := range configRefs(a.Config) {
			if _, ok := dsl.Variables[ref]; !ok {
				errs = append(errs, fmt.Errorf("%s: variable %q is not defined", where, ref))
			}
		}
	}
	return errs
}

// configRefs 收集配置中的 ${var} 引用
func configRefs(v any) []string {
	var refs []string
	switch val := v.(type) {
	case string:
		refs = append(refs, extractVariableRefs(val)...)
	case map[string]any:
		for _, item := range val {
			refs = append(refs, configRefs(item)...)
		}
	case []any:
		for _, item := range val {
			refs = append(refs, configRefs(item)...)
		}
	}
	return refs
}

// extractVariableRefs 提取 ${var} 引用
func extractVariableRefs(s string) []string {
	matches := varPattern.FindAllStringSubmatch(s, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m[1])
	}
	return refs
}
