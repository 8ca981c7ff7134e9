package workflow

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/internal/events"
	"github.com/BaSui01/pathflow/internal/metrics"
)

// DefaultMaxIterations is the validation budget of loops that set none.
const DefaultMaxIterations = 3

// Options are the collaborators shared by every step of a workflow.
type Options struct {
	// Factory builds agents by kind. Defaults to agent.NewFactory with an
	// in-memory store.
	Factory *agent.Factory

	// Discovery configures every scout step. Defaults to
	// discovery.DefaultScoutConfig.
	Discovery *discovery.ScoutConfig

	// Scorer replaces the default coverage scorer.
	Scorer discovery.Scorer

	// AgentTimeout bounds one agent invocation when its definition sets no
	// "timeout". Zero means no bound.
	AgentTimeout time.Duration

	// Limiter paces agent starts inside path executions.
	Limiter *rate.Limiter

	// MaxIterations is the default validation loop budget.
	MaxIterations int

	// History persists the run history after every run.
	History HistorySink

	// Events receives run events.
	Events events.Publisher

	Logger  *zap.Logger
	Metrics *metrics.Collector
	Tracer  trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Factory == nil {
		o.Factory = agent.NewFactory(agent.Dependencies{Logger: o.Logger})
	}
	if o.Discovery == nil {
		o.Discovery = discovery.DefaultScoutConfig()
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Events == nil {
		o.Events = events.NopPublisher{}
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("github.com/BaSui01/pathflow/workflow")
	}
	return o
}
