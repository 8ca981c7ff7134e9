// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package config 提供 PathFlow 的应用配置。
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（前缀 PATHFLOW）。
// 工作流图本身不在这里加载，见 workflow/dsl。
package config
