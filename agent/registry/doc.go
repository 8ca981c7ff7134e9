// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package registry 提供带作用域的 Agent 定义注册表。

# 概述

Registry 以 (scopeID, agentID) 为键的 arena 形式存储 Agent 定义，
Scope 之间通过父指针组成一棵树。每个 Scope 是独立的命名空间：
同一标识符可以同时出现在父子 Scope 中而互不冲突。

# 可见性规则

  - Resolve 只在给定 Scope 中查找，不向上查找父 Scope，也不向下查找子 Scope
  - VisibleAgents 只返回直接注册在该 Scope 中的定义（无继承）
  - 嵌套结构（loop / fork）内部的 Agent 在外部不可发现、不可执行

# 使用示例

	reg := registry.New(logger)
	def, _ := registry.NewDefinition("search_agent", types.KindStatic,
		[]types.Capability{types.CapabilityDataRetrieval}, nil)
	_ = reg.Register(reg.Top(), def)
	got, err := reg.Resolve(reg.Top(), "search_agent")
*/
package registry
