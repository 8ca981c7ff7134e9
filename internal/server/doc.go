// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 提供 PathFlow 指标端点的 HTTP 生命周期管理。

Manager 在后台监听 /metrics（Prometheus 格式）与 /healthz，
Shutdown 在超时内排空连接，Errors() 暴露异步服务错误。
*/
package server
