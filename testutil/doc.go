// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 PathFlow 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertErrorCode / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON / WriteFile

# 子包

  - testutil/mocks: MockKind（可编排响应与错误注入的 Agent 类型）
    与 MockStore（带调用记录的记忆存储）
  - testutil/fixtures: 预置的工作流 YAML 与 Agent 定义

# 使用示例

	kind := mocks.NewMockKind().WithResponse("search", map[string]any{"response": "rows"})
	factory.Register("mock", kind.Constructor())
*/
package testutil
