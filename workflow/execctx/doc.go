// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package execctx 提供单次运行的执行上下文（Execution Context）。

# 概述

ExecutionContext 是一个只追加、保持插入顺序的映射：Agent 标识符到该
Agent 的结果记录（payload、status、能力标签、耗时）。子上下文读取父上下文
的不可变快照，只向自身写入。

# 富化（Enrich）

Enrich 是纯函数且幂等：把嵌套在结果包装中的主要文本输出复制到统一的
Response 访问器上；找不到主要输出时不伪造，而是把记录标记为 Incomplete，
模板渲染时显式报错，而不是静默渲染为空字符串。

# 查找与模板

Lookup 使用 gjson 路径（如 path_loop.result.path_proposer.target）
在富化后的 JSON 视图上查找；Render 替换 {{ path }} 占位符。
*/
package execctx
