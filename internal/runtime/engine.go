package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/messagemind/automaton/internal/logging"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
)

const (
	// DefaultMaxSteps bounds the number of nodes a single traversal may visit.
	DefaultMaxSteps = 1000
	// DefaultSubject is the subject of messages sent by action nodes.
	DefaultSubject = "Automation Action"
)

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Engine walks automation graphs node by node.
// It holds no per-run state; one Engine serves any number of concurrent executions.
type Engine struct {
	store       ports.GraphStore
	sender      ports.MessageSender
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	maxSteps    int
	maxDuration time.Duration
	subject     string
	now         func() time.Time
	sleep       Sleeper
}

// EngineOption configures the runtime Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps sets the visited-node ceiling per traversal. Zero disables it.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithMaxDuration sets the wall-clock ceiling per traversal. Zero disables it.
func WithMaxDuration(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.maxDuration = d
	}
}

// WithSubject overrides the subject of action messages.
func WithSubject(subject string) EngineOption {
	return func(e *Engine) {
		e.subject = subject
	}
}

// WithClock replaces time.Now, mainly for delay computation in tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSleeper replaces the timer used by delay nodes.
func WithSleeper(s Sleeper) EngineOption {
	return func(e *Engine) {
		e.sleep = s
	}
}

// NewEngine creates a new engine with dependencies.
func NewEngine(store ports.GraphStore, sender ports.MessageSender, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		sender:   sender,
		logger:   logging.NewNop(),
		maxSteps: DefaultMaxSteps,
		subject:  DefaultSubject,
		now:      time.Now,
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sleep is the default Sleeper: a timer raced against ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Load fetches the graph for a run. Not-found errors keep domain.ErrGraphNotFound in the chain.
func (e *Engine) Load(ctx context.Context, graphID string) (*domain.Graph, error) {
	g, err := e.store.Get(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to load automation %s: %w", graphID, err)
	}
	return g, nil
}

// Run loads the graph and executes it against email, blocking until every traversal stops.
// The only error it returns is a load failure; traversal errors are reported in the Report.
func (e *Engine) Run(ctx context.Context, graphID, email string) (*domain.Report, error) {
	g, err := e.Load(ctx, graphID)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, g, domain.NewExecutionContext(uuid.NewString(), g.ID, email)), nil
}

// Execute traverses an already loaded graph.
// It starts at the start node, or, when the graph has none, from every action node concurrently.
func (e *Engine) Execute(ctx context.Context, g *domain.Graph, execCtx *domain.ExecutionContext) *domain.Report {
	report := &domain.Report{
		RunID:   execCtx.RunID,
		GraphID: g.ID,
		Email:   execCtx.Email,
	}
	logger := e.logger.With("run_id", execCtx.RunID, "graph_id", g.ID)

	if start, ok := g.FirstOfType(domain.NodeTypeStart); ok {
		logger.Debug("execution started", "entry", start.ID)
		report.Traversals = []domain.TraversalResult{e.traverse(ctx, g, start.ID, execCtx)}
		return report
	}

	report.Fallback = true
	actions := g.NodesOfType(domain.NodeTypeAction)
	if len(actions) == 0 {
		logger.Warn("no start node and no action nodes, nothing to run")
		return report
	}
	logger.Info("no start node, running action nodes independently", "count", len(actions))

	results := make([]domain.TraversalResult, len(actions))
	var wg sync.WaitGroup
	for i, node := range actions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.traverse(ctx, g, node.ID, execCtx)
		}()
	}
	wg.Wait()

	report.Traversals = results
	return report
}
