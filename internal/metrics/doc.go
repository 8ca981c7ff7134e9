// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的运行指标采集。

# 核心类型

  - Collector：持有 Counter、Histogram 向量指标，按运行、步骤、
    Agent、发现、验证循环、路径执行与存储分组。

# 主要能力

  - 运行指标：运行总数与耗时，按 status 分组。
  - Agent 指标：执行总数与耗时，按 kind/status 分组。
  - 发现指标：每次发现返回的候选数量。
  - 验证循环：迭代次数分布，按 outcome 分组。
  - 存储指标：运行历史读写耗时，按 backend/operation 分组。

Collector 的方法对 nil 接收者安全，未配置指标时可直接传 nil。
*/
package metrics
