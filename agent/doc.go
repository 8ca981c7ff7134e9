// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package agent 定义 Agent 执行契约以及按 kind 分派的工厂。

# 概述

所有 Agent 无论背后是 LLM 调用、检索工具还是记忆读写，都满足同一个
Agent 接口：{ID, Kind, Capabilities, Execute}。Factory 把 Agent 定义中的
kind 映射到一个具体实现（标签分派），而不是运行时鸭子类型。

# 内置 kind

  - static         - 渲染配置中的 response 模板，用于固定输出与测试夹具
  - memory_reader  - 从 memory.Store 读取记忆
  - memory_writer  - 向 memory.Store 写入记忆
  - path_proposer  - 从 Scout 结果中挑选尚未被拒绝的最佳候选路径
  - path_validator - 基于规则的候选路径校验

scout / loop / fork / path_executor 是工作流结构，由 workflow 包执行，
Factory 对它们返回 UNKNOWN_KIND。
*/
package agent
