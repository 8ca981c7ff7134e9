package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/memory"
	"github.com/BaSui01/pathflow/config"
	"github.com/BaSui01/pathflow/internal/cache"
	"github.com/BaSui01/pathflow/internal/database"
	"github.com/BaSui01/pathflow/internal/events"
	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/internal/server"
	"github.com/BaSui01/pathflow/internal/store"
	"github.com/BaSui01/pathflow/internal/telemetry"
	"github.com/BaSui01/pathflow/workflow"
)

// app holds the connections one command needs. Everything it opens is
// released by close, in reverse order.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	registry  *prometheus.Registry
	metrics   *metrics.Collector
	telemetry *telemetry.Providers
	metricsSv *server.Manager

	cache    *cache.Manager
	memory   memory.Store
	runs     store.RunStore
	embedded *events.EmbeddedServer
	events   events.Publisher

	closers []func() error
}

// appOptions selects which parts newApp wires.
type appOptions struct {
	// runtime wires telemetry, metrics, events and the memory store.
	runtime bool
	// history opens the configured run store.
	history bool
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts appOptions) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger, events: events.NopPublisher{}}
	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	needRedis := opts.history && cfg.Store.Runs == store.BackendRedis ||
		opts.runtime && cfg.Store.Memory == "redis"
	if needRedis {
		if a.cache, err = cache.NewManager(cfg.Redis, cache.Options{}, logger); err != nil {
			return nil, err
		}
		a.onClose(a.cache.Close)
	}

	if opts.runtime {
		if err := a.wireRuntime(ctx); err != nil {
			return nil, err
		}
	}

	if opts.history {
		deps := store.Dependencies{Redis: a.cache, Logger: logger, Metrics: a.metrics}
		if cfg.Store.Runs == store.BackendSQL {
			if deps.Database, err = database.Open(cfg.Database, logger); err != nil {
				return nil, err
			}
		}
		if a.runs, err = store.Open(ctx, cfg.Store.Runs, deps); err != nil {
			if deps.Database != nil {
				_ = deps.Database.Close()
			}
			return nil, err
		}
		a.onClose(a.runs.Close)
	}
	return a, nil
}

func (a *app) wireRuntime(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	a.telemetry = providers
	a.onClose(func() error { return providers.Shutdown(context.Background()) })

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewCollector(cfg.Metrics.Namespace, a.registry, logger)
	if cfg.Metrics.Enabled {
		a.metricsSv = server.NewManager(a.registry, server.FromMetricsConfig(cfg.Metrics), logger)
		if err := a.metricsSv.Start(); err != nil {
			return err
		}
		a.onClose(func() error { return a.metricsSv.Shutdown(context.Background()) })
	}

	if cfg.Store.Memory == "redis" {
		a.memory = memory.NewRedisStore(a.cache.Client(), a.cache.Prefix(), logger)
	}

	if cfg.NATS.Enabled {
		url := cfg.NATS.URL
		if cfg.NATS.Embedded {
			if a.embedded, err = events.StartEmbedded(cfg.NATS.EmbeddedPort); err != nil {
				return err
			}
			a.onClose(func() error { a.embedded.Close(); return nil })
			url = a.embedded.ClientURL()
		}
		pub, err := events.NewNATSPublisher(url, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		a.onClose(func() error {
			ferr := pub.Flush()
			return errors.Join(ferr, pub.Close())
		})
		a.events = pub
	}
	return nil
}

// options returns the workflow options over the wired connections.
func (a *app) options() workflow.Options {
	cfg := a.cfg
	disc := discovery.DefaultScoutConfig()
	if cfg.Discovery.MaxCandidates > 0 {
		disc.MaxCandidates = cfg.Discovery.MaxCandidates
	}
	if cfg.Discovery.MaxPathLength > 0 {
		disc.MaxPathLength = cfg.Discovery.MaxPathLength
	}
	if cfg.Discovery.MaxExploredPaths > 0 {
		disc.MaxExploredPaths = cfg.Discovery.MaxExploredPaths
	}
	disc.AllowPartial = cfg.Discovery.AllowPartial

	opts := workflow.Options{
		Factory:       agent.NewFactory(agent.Dependencies{Memory: a.memory, Logger: a.logger}),
		Discovery:     disc,
		AgentTimeout:  cfg.Executor.AgentTimeout,
		MaxIterations: cfg.Executor.MaxIterations,
		Events:        a.events,
		Logger:        a.logger,
		Metrics:       a.metrics,
	}
	if cfg.Executor.RateLimit > 0 {
		burst := cfg.Executor.RateBurst
		if burst <= 0 {
			burst = 1
		}
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.Executor.RateLimit), burst)
	}
	if a.runs != nil {
		opts.History = a.runs
	}
	if a.telemetry != nil {
		opts.Tracer = a.telemetry.Tracer()
	}
	return opts
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
