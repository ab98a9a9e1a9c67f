package automaton_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/messagemind/automaton"
	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func welcomeStore(t *testing.T) *memory.Store {
	t.Helper()
	b := dsl.New("welcome")
	b.Start("start").Then("hello")
	b.Action("hello", "Welcome!").Then("end")
	b.End("end")
	store, err := b.Store()
	require.NoError(t, err)
	return store
}

func TestEngine_Run(t *testing.T) {
	outbox := memory.NewOutbox()
	eng := automaton.New(welcomeStore(t), outbox)

	report, err := eng.Run(context.Background(), "welcome", "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "hello", "end"}, report.Visited())
	assert.Equal(t, []string{"Welcome!"}, outbox.Texts())
}

func TestEngine_StartRunsInBackground(t *testing.T) {
	outbox := memory.NewOutbox()
	var mu sync.Mutex
	var reports []*domain.Report

	eng := automaton.New(welcomeStore(t), outbox,
		automaton.WithReportHandler(func(r *domain.Report) {
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, r)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	runID, err := eng.Start(ctx, "welcome", "jane@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	// The request that started the run may go away without stopping it.
	cancel()
	eng.Wait()

	require.Len(t, reports, 1)
	assert.Equal(t, runID, reports[0].RunID)
	assert.Equal(t, domain.OutcomeEnd, reports[0].Traversals[0].Outcome)
	assert.Equal(t, []string{"Welcome!"}, outbox.Texts())
}

func TestEngine_StartNotFound(t *testing.T) {
	eng := automaton.New(memory.NewStore(), memory.NewOutbox())

	_, err := eng.Start(context.Background(), "missing", "jane@x.com")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestEngine_CloseInterruptsDelays(t *testing.T) {
	b := dsl.New("slow")
	b.Start("s").Then("wait")
	b.Delay("wait", dsl.After(3, domain.UnitDays)).Then("late")
	b.Action("late", "too late")
	store, err := b.Store()
	require.NoError(t, err)

	outbox := memory.NewOutbox()
	done := make(chan *domain.Report, 1)
	eng := automaton.New(store, outbox, automaton.WithReportHandler(func(r *domain.Report) { done <- r }))

	_, err = eng.Start(context.Background(), "slow", "jane@x.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, eng.Close(ctx))

	report := <-done
	assert.Equal(t, domain.OutcomeCanceled, report.Traversals[0].Outcome)
	assert.Empty(t, outbox.Messages())
}

func TestEngine_WithMaxSteps(t *testing.T) {
	b := dsl.New("loop")
	b.Start("s").Then("a")
	b.Action("a", "ping").Then("a")
	store, err := b.Store()
	require.NoError(t, err)

	outbox := memory.NewOutbox()
	eng := automaton.New(store, outbox, automaton.WithMaxSteps(4))

	report, err := eng.Run(context.Background(), "loop", "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeLimitExceeded, report.Traversals[0].Outcome)
	assert.Len(t, outbox.Messages(), 3)
}

func TestEngine_StartAfterClose(t *testing.T) {
	outbox := memory.NewOutbox()
	eng := automaton.New(welcomeStore(t), outbox)

	require.NoError(t, eng.Close(context.Background()))

	_, err := eng.Start(context.Background(), "welcome", "jane@x.com")
	assert.ErrorIs(t, err, automaton.ErrEngineClosed)
	eng.Wait()
	assert.Empty(t, outbox.Messages())
}

func TestEngine_StartConcurrentWithClose(t *testing.T) {
	eng := automaton.New(welcomeStore(t), memory.NewOutbox())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Start(context.Background(), "welcome", "jane@x.com")
			if err != nil {
				assert.ErrorIs(t, err, automaton.ErrEngineClosed)
			}
		}()
	}
	require.NoError(t, eng.Close(context.Background()))
	wg.Wait()
	eng.Wait()
}
