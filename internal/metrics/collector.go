// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 运行指标
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	// 步骤指标
	stepsTotal *prometheus.CounterVec

	// Agent 指标
	agentExecutionsTotal   *prometheus.CounterVec
	agentExecutionDuration *prometheus.HistogramVec

	// 发现与验证
	discoveryCandidates  *prometheus.HistogramVec
	validationIterations *prometheus.HistogramVec
	pathExecutionsTotal  *prometheus.CounterVec
	pathLength           prometheus.Histogram

	// 存储指标
	storeOperationDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时指标不注册到任何 Registry。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of workflow runs",
		},
		[]string{"workflow", "status"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"workflow"},
	)

	c.stepsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of executed top-level steps",
		},
		[]string{"kind", "status"},
	)

	c.agentExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_executions_total",
			Help:      "Total number of agent executions",
		},
		[]string{"kind", "status"},
	)

	c.agentExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_execution_duration_seconds",
			Help:      "Agent execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	c.discoveryCandidates = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_candidates",
			Help:      "Number of candidate paths returned per discovery",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"status"},
	)

	c.validationIterations = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_loop_iterations",
			Help:      "Iterations spent per validation loop",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
		[]string{"outcome"},
	)

	c.pathExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_executions_total",
			Help:      "Total number of validated path executions",
		},
		[]string{"status"},
	)

	c.pathLength = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_length",
			Help:      "Number of agents per executed path",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
	)

	c.storeOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Run store operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"backend", "operation", "status"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 记录方法
// =============================================================================

// RecordRun 记录一次工作流运行
func (c *Collector) RecordRun(workflow, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(workflow, status).Inc()
	c.runDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordStep 记录一个顶层步骤
func (c *Collector) RecordStep(kind, status string) {
	if c == nil {
		return
	}
	c.stepsTotal.WithLabelValues(kind, status).Inc()
}

// RecordAgentExecution 记录 Agent 执行
func (c *Collector) RecordAgentExecution(kind, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.agentExecutionsTotal.WithLabelValues(kind, status).Inc()
	c.agentExecutionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDiscovery 记录一次发现的候选数
func (c *Collector) RecordDiscovery(candidates int, err error) {
	if c == nil {
		return
	}
	c.discoveryCandidates.WithLabelValues(statusOf(err)).Observe(float64(candidates))
}

// RecordValidationLoop 记录验证循环结果: accepted, rejected, no_candidate, failed
func (c *Collector) RecordValidationLoop(outcome string, iterations int) {
	if c == nil {
		return
	}
	c.validationIterations.WithLabelValues(outcome).Observe(float64(iterations))
}

// RecordPathExecution 记录路径执行
func (c *Collector) RecordPathExecution(status string, length int) {
	if c == nil {
		return
	}
	c.pathExecutionsTotal.WithLabelValues(status).Inc()
	c.pathLength.Observe(float64(length))
}

// RecordStoreOperation 记录运行历史存储操作
func (c *Collector) RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.storeOperationDuration.WithLabelValues(backend, operation, statusOf(err)).Observe(duration.Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
