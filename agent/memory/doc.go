// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 memory 提供 memory_reader / memory_writer 两类 Agent 使用的键值记忆存储。

# 概述

本包只定义读写契约，不规定记忆的持久化格式：值以任意 Go 值保存，
Redis 实现以 JSON 编码。键通常形如 "<namespace>:<key>"。

# 核心接口

  - [Store]：通用记忆存储接口，提供 Save / Load / Delete / List
  - [InMemoryStore]：带 TTL 与容量上限的进程内实现，用于本地开发与测试
  - [RedisStore]：基于 go-redis 的分布式实现
*/
package memory
