// =============================================================================
// 📦 测试数据工厂 - 工作流定义
// =============================================================================
// 提供预置的工作流 YAML 与 Agent 定义，用于 DSL、CLI 与存储测试
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// ResearchWorkflowYAML 发现、验证并执行一条研究路径
const ResearchWorkflowYAML = `version: "1.0"
name: research
description: Scout, validate and execute a research path
variables:
  topic:
    type: string
    default: churn
steps: [scout, review, exec]
agents:
  - id: search
    kind: static
    capabilities: [data_retrieval]
    config:
      response: "rows about ${topic}"
  - id: analysis
    kind: static
    capabilities: [reasoning]
    config:
      response: "analysis of {{ search.response }}"
  - id: scout
    kind: scout
    config:
      capabilities: [data_retrieval, reasoning]
  - id: review
    kind: loop
    config:
      max_iterations: 3
    agents:
      - id: proposer
        kind: path_proposer
        config:
          candidates_from: scout
      - id: validator
        kind: path_validator
        config:
          max_length: 3
  - id: exec
    kind: path_executor
    config:
      path_from: review.result.proposer
`

// NestedScopeWorkflowYAML 嵌套 Agent 只在子作用域可见
const NestedScopeWorkflowYAML = `version: "1.0"
name: nested
steps: [scout, review, exec]
agents:
  - id: summarize
    kind: static
    capabilities: [summarization]
    config:
      response: "summary of {{ input }}"
  - id: scout
    kind: scout
    config:
      capabilities: [summarization]
  - id: review
    kind: loop
    agents:
      - id: proposer
        kind: path_proposer
        config:
          candidates_from: scout
      - id: validator
        kind: path_validator
      - id: hidden_summarizer
        kind: static
        capabilities: [summarization]
  - id: exec
    kind: path_executor
    config:
      path_from: review.result.proposer
`

// MemoryWorkflowYAML 先写入记忆再读出
const MemoryWorkflowYAML = `version: "1.0"
name: memory
variables:
  user:
    type: string
    required: true
steps: [remember, recall]
agents:
  - id: remember
    kind: memory_writer
    config:
      namespace: notes
      key: "${user}"
  - id: recall
    kind: memory_reader
    config:
      namespace: notes
      key: "${user}"
`

// InvalidWorkflowYAML 缺少 steps
const InvalidWorkflowYAML = `version: "1.0"
name: broken
agents:
  - id: a
    kind: static
`

// =============================================================================
// 🤖 Agent 定义工厂
// =============================================================================

// StaticDefinition 返回带能力的 static Agent 定义
func StaticDefinition(id string, caps ...types.Capability) *registry.Definition {
	return registry.MustDefinition(id, types.KindStatic, caps, map[string]any{
		"response": id + " done",
	})
}

// ResearchAgents 返回研究场景的三个 Agent 定义
func ResearchAgents() []*registry.Definition {
	return []*registry.Definition{
		StaticDefinition("search", "data_retrieval"),
		StaticDefinition("analysis", "reasoning"),
		StaticDefinition("report", "summarization"),
	}
}
