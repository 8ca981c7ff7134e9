package dsl

// GraphDSL 配置图 DSL 顶层结构
type GraphDSL struct {
	// Version DSL 版本
	Version string `yaml:"version" json:"version"`
	// Name 工作流名称，即 GraphDefinition.ID
	Name string `yaml:"name" json:"name"`
	// Description 工作流描述
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Variables 变量定义，用于 ${var} 插值与 when 条件
	Variables map[string]VariableDef `yaml:"variables,omitempty" json:"variables,omitempty"`

	// Steps 顶层步骤，按执行顺序列出顶层 agent id
	Steps []string `yaml:"steps" json:"steps"`

	// Agents 顶层作用域的 agent 定义
	Agents []AgentDef `yaml:"agents" json:"agents"`

	// Metadata 元数据
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// VariableDef 变量定义
type VariableDef struct {
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`               // string, int, float, bool, list, map
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`         // 默认值
	Description string `yaml:"description,omitempty" json:"description,omitempty"` // 描述
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`       // 是否必填
}

// AgentDef 一个 agent 定义。loop 与 fork 在 Agents 中声明子作用域成员。
type AgentDef struct {
	ID           string         `yaml:"id" json:"id"`
	Kind         string         `yaml:"kind" json:"kind"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities []string       `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Config       map[string]any `yaml:"config,omitempty" json:"config,omitempty"`

	// When 条件表达式，为 false 时该定义（及其子作用域）不会注册
	When string `yaml:"when,omitempty" json:"when,omitempty"`

	Agents []AgentDef `yaml:"agents,omitempty" json:"agents,omitempty"`
}

// constructKinds 可声明子作用域的 kind
var constructKinds = map[string]bool{
	"loop": true,
	"fork": true,
}
