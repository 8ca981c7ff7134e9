package dsl

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow"
)

// Parser DSL 解析器
type Parser struct {
	// overrides 覆盖变量默认值
	overrides map[string]any
}

// NewParser 创建 DSL 解析器
func NewParser() *Parser {
	return &Parser{overrides: make(map[string]any)}
}

// WithVariable 覆盖一个变量的值
func (p *Parser) WithVariable(name string, value any) *Parser {
	p.overrides[name] = value
	return p
}

// ParseFile 从文件解析 DSL
func (p *Parser) ParseFile(filename string) (*workflow.GraphDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read DSL file: %w", err)
	}
	return p.Parse(data)
}

// Parse 从 YAML 字节解析 DSL
func (p *Parser) Parse(data []byte) (*workflow.GraphDefinition, error) {
	var dsl GraphDSL
	if err := yaml.Unmarshal(data, &dsl); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "parse YAML").WithCause(err)
	}

	// 1. 验证 DSL
	if err := p.validate(&dsl); err != nil {
		return nil, err
	}

	// 2. 解析变量
	vars, err := p.resolveVariables(dsl.Variables)
	if err != nil {
		return nil, err
	}

	// 3. 插值并按 when 过滤
	cond, err := newCondition(vars)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "variables").WithCause(err)
	}
	disabled := make(map[string]bool)
	agents, err := p.buildAgents(dsl.Agents, vars, cond, disabled)
	if err != nil {
		return nil, err
	}

	steps := make([]string, 0, len(dsl.Steps))
	for _, id := range dsl.Steps {
		if !disabled[id] {
			steps = append(steps, id)
		}
	}

	return &workflow.GraphDefinition{
		ID:          dsl.Name,
		Description: dsl.Description,
		Steps:       steps,
		Agents:      agents,
	}, nil
}

// validate 验证 DSL
func (p *Parser) validate(dsl *GraphDSL) error {
	errs := NewValidator().Validate(dsl)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return types.NewError(types.ErrInvalidConfig, "validation errors: "+strings.Join(msgs, "; "))
}

// resolveVariables 合并默认值与覆盖值，缺失的必填变量报错
func (p *Parser) resolveVariables(defs map[string]VariableDef) (map[string]any, error) {
	vars := make(map[string]any, len(defs)+len(p.overrides))
	for name, def := range defs {
		if def.Default != nil {
			vars[name] = def.Default
		}
	}
	for name, v := range p.overrides {
		vars[name] = v
	}
	for name, def := range defs {
		if _, ok := vars[name]; def.Required && !ok {
			return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("required variable %q has no value", name))
		}
	}
	return vars, nil
}

func (p *Parser) buildAgents(defs []AgentDef, vars map[string]any, cond *condition, disabled map[string]bool) ([]workflow.AgentSpec, error) {
	out := make([]workflow.AgentSpec, 0, len(defs))
	for _, d := range defs {
		ok, err := cond.Eval(d.When)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("when %q", d.When)).WithAgent(d.ID).WithCause(err)
		}
		if !ok {
			disabled[d.ID] = true
			continue
		}

		cfg, _ := interpolate(d.Config, vars).(map[string]any)
		children, err := p.buildAgents(d.Agents, vars, cond, disabled)
		if err != nil {
			return nil, err
		}
		spec := workflow.AgentSpec{
			ID:           d.ID,
			Kind:         d.Kind,
			Description:  fmt.Sprint(interpolateString(d.Description, vars)),
			Capabilities: d.Capabilities,
			Config:       cfg,
		}
		if len(children) > 0 {
			spec.Agents = children
		}
		out = append(out, spec)
	}
	return out, nil
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolate 递归替换 ${var}。整个字符串恰为一个引用时保留变量原类型。
func interpolate(v any, vars map[string]any) any {
	switch val := v.(type) {
	case string:
		return interpolateString(val, vars)
	case map[string]any:
		if val == nil {
			return nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = interpolate(item, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = interpolate(item, vars)
		}
		return out
	}
	return v
}

func interpolateString(s string, vars map[string]any) any {
	if m := varPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		if v, ok := vars[m[1]]; ok {
			return v
		}
		return s
	}
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return fmt.Sprint(v)
		}
		return match
	})
}
