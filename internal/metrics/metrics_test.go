package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/messagemind/automaton/internal/metrics"
	"github.com/messagemind/automaton/internal/runtime"
	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/dsl"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsEngineEvents(t *testing.T) {
	b := dsl.New("g")
	b.Start("s").Then("a1")
	b.Action("a1", "ok").Then("a2")
	b.Action("a2", "fail")
	store, err := b.Store()
	require.NoError(t, err)

	outbox := memory.NewOutbox()
	outbox.FailOn("fail", errors.New("rejected"))

	c := metrics.New()
	engine := runtime.NewEngine(store, outbox, runtime.WithLifecycleHooks(c.Hooks()))
	_, err = engine.Run(context.Background(), "g", "x@y.z")
	require.NoError(t, err)

	reg := c.Registry()
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Equal(t, 1, testutil.CollectAndCount(c.Registry(), "automaton_traversals_total"))
	expected := `
# HELP automaton_traversals_total Finished traversals, by outcome
# TYPE automaton_traversals_total counter
automaton_traversals_total{outcome="failed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "automaton_traversals_total"))

	expectedEffects := `
# HELP automaton_effects_total Node effects performed, by effect and result
# TYPE automaton_effects_total counter
automaton_effects_total{effect="send_message",result="error"} 1
automaton_effects_total{effect="send_message",result="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expectedEffects), "automaton_effects_total"))
}

func TestCollector_Handler(t *testing.T) {
	c := metrics.New()
	c.ObserveRequest(http.MethodGet, http.StatusOK)
	c.Hooks().OnNodeEnter(context.Background(), &domain.NodeEvent{NodeType: domain.NodeTypeAction})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `automaton_http_requests_total{code="200",method="GET"} 1`)
	assert.Contains(t, rec.Body.String(), `automaton_node_visits_total{node_type="action"} 1`)
}
