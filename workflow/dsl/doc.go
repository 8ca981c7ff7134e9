// Package dsl 加载 YAML 声明式配置图，支持变量插值（${var}）与 when 条件，
// 解析结果为 workflow.GraphDefinition，交由 workflow.Build 构建。
package dsl
