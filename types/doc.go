// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 PathFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、workflow、
discovery 等上层模块提供统一的类型契约。跨包共享的错误码、能力标签、
Agent 类型标签以及执行结果均定义于此，以避免循环依赖。

# 核心类型

  - Error / ErrorCode - 结构化错误体系，携带 AgentID、ScopeID、Feedback
  - Capability        - 能力标签（data_retrieval、reasoning 等）
  - AgentKind         - Agent 类型标签，决定由哪个实现执行
  - Status            - 执行状态（success / failed / empty / aborted）
  - Result            - Agent 执行契约的返回记录 {payload, status, metadata}

# 主要能力

  - 错误工具链：AsError / IsCode / GetErrorCode
  - Context 传播：WithRunID / WithTraceID / WithScopeID
*/
package types
