// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
pathflow 是 PathFlow 的命令行入口。

	pathflow run -workflow research.yaml -input "churn drivers"
	pathflow validate -workflow research.yaml
	pathflow discover -workflow research.yaml -capabilities data_retrieval,reasoning
	pathflow history -config pathflow.yaml -workflow research
	pathflow version

所有命令都接受 -config 指定 YAML 配置文件，环境变量 PATHFLOW_* 覆盖文件中的值。
run 命令按配置连接 Redis、数据库与 NATS，并在启用时暴露 /metrics。
*/
package main
