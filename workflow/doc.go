// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供基于作用域注册表的工作流编排与路径执行。

# 概述

Build 将声明式的 GraphDefinition 展开为冻结的 registry.Registry 与一组
顶层步骤；Workflow.Run 按顺序驱动这些步骤，所有结果写入同一个
execctx.ExecutionContext。循环与分叉各自拥有子作用域，子作用域中的
Agent 对顶层不可见。

# 核心类型

  - Step          - 步骤接口（ID / Kind / Scope / Run）
  - AgentStep     - 执行单个 Agent 并追加记录
  - ScoutStep     - 在当前作用域内发现候选路径
  - LoopStep      - 提议者 / 验证者循环，接受后产出 ValidatedPath
  - ForkStep      - 基于 errgroup 的并发分支，汇合后统一合并
  - ExecutorStep  - 读取 ValidatedPath 并交给 PathExecutor
  - PathExecutor  - 仅在顶层作用域内按顺序执行已验证路径
  - ExecutionHistory - 单次运行的步骤级历史，可通过 HistorySink 持久化

# 稳定查找路径

已验证路径写入 "<emitter>.result.<proposer>"，其中 emitter 为循环 id；
没有循环时 Scout 以自身 id 同时作为 emitter 与 proposer。
*/
package workflow
