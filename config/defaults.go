// =============================================================================
// PathFlow 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		NATS:      DefaultNATSConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Executor:  DefaultExecutorConfig(),
		Store:     DefaultStoreConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "pathflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "pathflow",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		DB:        0,
		PoolSize:  10,
		KeyPrefix: "pathflow:",
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "pathflow",
		Name:            "pathflow",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultNATSConfig 返回默认事件总线配置
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Enabled:       false,
		URL:           "nats://localhost:4222",
		EmbeddedPort:  -1,
		SubjectPrefix: "pathflow.runs",
	}
}

// DefaultDiscoveryConfig 返回默认 Scout 参数
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		MaxCandidates:    5,
		MaxPathLength:    3,
		MaxExploredPaths: 10000,
	}
}

// DefaultExecutorConfig 返回默认执行参数
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		AgentTimeout:  30 * time.Second,
		RateBurst:     1,
		MaxIterations: 3,
	}
}

// DefaultStoreConfig 返回默认存储后端
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Runs:   "memory",
		Memory: "memory",
	}
}
