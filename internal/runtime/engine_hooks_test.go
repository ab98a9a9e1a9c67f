package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/messagemind/automaton/internal/runtime"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	b := dsl.New("hooks")
	b.Start("start").Then("send")
	b.Action("send", "hello").Then("check")
	b.Condition("check", dsl.Email(domain.OpEndsWith, "@x.com")).True("end")
	b.End("end")

	var entered, left, effects []string
	var conditionResult any
	var traversals []domain.TraversalResult

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			assert.Equal(t, domain.EventNodeEnter, e.Type)
			assert.Equal(t, "hooks", e.GraphID)
			entered = append(entered, e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			left = append(left, e.NodeID)
		},
		OnEffect: func(ctx context.Context, e *domain.EffectEvent) {
			effects = append(effects, e.NodeID+":"+e.Effect)
			if e.Effect == domain.EffectCondition {
				conditionResult = e.Detail
			}
		},
		OnTraversalEnd: func(ctx context.Context, e *domain.TraversalEvent) {
			traversals = append(traversals, e.Result)
		},
	}

	engine, _ := newEngine(t, b, runtime.WithLifecycleHooks(hooks))
	report, err := engine.Run(context.Background(), "hooks", "a@x.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "send", "check", "end"}, entered)
	assert.Equal(t, entered, left)
	assert.Equal(t, []string{"send:" + domain.EffectSendMessage, "check:" + domain.EffectCondition}, effects)
	assert.Equal(t, true, conditionResult)

	require.Len(t, traversals, 1)
	assert.Equal(t, domain.OutcomeEnd, traversals[0].Outcome)
	assert.Equal(t, "start", traversals[0].EntryNodeID)
	assert.NotEmpty(t, report.RunID)
}

func TestEngine_EffectHookReportsFailure(t *testing.T) {
	b := dsl.New("g")
	b.Start("s").Then("a")
	b.Action("a", "boom")

	var effectErr error
	engine, outbox := newEngine(t, b, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnEffect: func(ctx context.Context, e *domain.EffectEvent) {
			effectErr = e.Err
		},
	}))
	down := errors.New("down")
	outbox.FailOn("boom", down)

	_, err := engine.Run(context.Background(), "g", "x@y.z")
	require.NoError(t, err)
	assert.ErrorIs(t, effectErr, down)
}

func TestChainHooks(t *testing.T) {
	var calls []string
	first := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { calls = append(calls, "first") },
	}
	second := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { calls = append(calls, "second") },
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) { calls = append(calls, "leave") },
	}

	chained := domain.ChainHooks(first, second)
	chained.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	chained.OnNodeLeave(context.Background(), &domain.NodeEvent{})
	chained.OnEffect(context.Background(), &domain.EffectEvent{})

	assert.Equal(t, []string{"first", "second", "leave"}, calls)
}
