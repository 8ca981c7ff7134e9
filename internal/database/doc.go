// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 database 提供运行历史 SQL 存储使用的 GORM 连接管理。

# 概述

Open 根据 config.DatabaseConfig 选择方言（postgres、mysql 或纯 Go 的
glebarez/sqlite），打开连接并交给 PoolManager 统一管理连接池参数、
健康检查与事务重试。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Close() 以及 WithTransaction / WithTransactionRetry。
  - PoolConfig：连接池配置，可由 FromConfig 从应用配置转换。

# 主要能力

  - 方言选择：Open 按驱动名构造 gorm.Dialector。
  - 健康检查：可选的后台 PingContext 探活。
  - 事务重试：死锁、序列化失败、连接中断等错误按指数退避重试。
*/
package database
