// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 store 持久化运行历史（workflow.ExecutionHistory）。

# 后端

  - MemoryRunStore：进程内 map，适合测试与单次 CLI 运行。
  - RedisRunStore：JSON 值加按工作流、按状态的有序集合索引。
  - SQLRunStore：GORM 表 pathflow_runs，支持 postgres、mysql、sqlite。

所有后端实现 RunStore，同时满足 workflow.HistorySink，可直接作为
workflow.Options.History 使用。每次操作通过 metrics.Collector 记录耗时
与结果。
*/
package store
