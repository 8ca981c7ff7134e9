// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 cache 管理进程内共享的 Redis 连接。

# 概述

Manager 依据 config.RedisConfig 创建 go-redis 客户端，启动时探活，
可选后台健康检查，并为键统一加上配置的前缀。Agent 记忆存储
（memory.RedisStore）与运行历史存储（store.RedisRunStore）共用
同一个 Manager。

# 核心能力

  - Client：返回底层 redis.UniversalClient。
  - Key：拼接键前缀。
  - GetJSON / SetJSON / Delete：JSON 值读写。
  - Ping / Close：生命周期管理。
*/
package cache
