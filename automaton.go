package automaton

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/messagemind/automaton/internal/logging"
	"github.com/messagemind/automaton/internal/runtime"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
)

// ErrEngineClosed is returned by Start once Close has been called.
var ErrEngineClosed = errors.New("engine is closed")

// Engine is the high-level entry point of the library.
// It wraps the internal runtime and adds fire-and-forget execution for hosts
// such as the HTTP server.
type Engine struct {
	runtime     *runtime.Engine
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	runtimeOpts []runtime.EngineOption
	onReport    func(*domain.Report)

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps caps the number of nodes a traversal may visit (default runtime.DefaultMaxSteps).
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxSteps(n))
	}
}

// WithMaxDuration caps the wall-clock time of a traversal. Zero means no cap.
func WithMaxDuration(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxDuration(d))
	}
}

// WithSubject overrides the subject of messages sent by action nodes.
func WithSubject(subject string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSubject(subject))
	}
}

// WithSleeper replaces the timer used by delay nodes.
func WithSleeper(s runtime.Sleeper) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSleeper(s))
	}
}

// WithReportHandler receives the report of every background run started with Start.
func WithReportHandler(fn func(*domain.Report)) Option {
	return func(e *Engine) {
		e.onReport = fn
	}
}

// New initializes an Engine reading graphs from store and delivering messages through sender.
func New(store ports.GraphStore, sender ports.MessageSender, opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(store, sender, runtimeOpts...)

	eng.base, eng.cancel = context.WithCancel(context.Background())
	return eng
}

// Run executes the automation against email and waits for every traversal to stop.
// It fails only when the automation cannot be loaded.
func (e *Engine) Run(ctx context.Context, graphID, email string) (*domain.Report, error) {
	return e.runtime.Run(ctx, graphID, email)
}

// Start loads the automation and runs it in the background, returning the run id
// as soon as the graph is loaded. Background runs outlive ctx; they stop only when
// they finish or when Close is called. After Close it fails with ErrEngineClosed.
func (e *Engine) Start(ctx context.Context, graphID, email string) (string, error) {
	if e.isClosed() {
		return "", ErrEngineClosed
	}
	g, err := e.runtime.Load(ctx, graphID)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	execCtx := domain.NewExecutionContext(runID, g.ID, email)

	// Add under the lock so it never races the Wait in Close.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrEngineClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		report := e.runtime.Execute(e.base, g, execCtx)
		e.logger.Info("automation run finished",
			"run_id", runID, "graph_id", g.ID, "traversals", len(report.Traversals))
		if e.onReport != nil {
			e.onReport(report)
		}
	}()

	e.logger.Info("automation run started", "run_id", runID, "graph_id", g.ID)
	return runID, nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Wait blocks until every background run has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels background runs still suspended in a delay and waits for them,
// giving up when ctx is done. Later calls to Start fail with ErrEngineClosed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
