package domain_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/messagemind/automaton/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const editorGraph = `{
	"id": "g1",
	"name": "Onboarding",
	"nodes": [
		{"id": "1", "type": "start", "position": {"x": 0, "y": 0}, "data": {"label": "Start"}},
		{"id": "2", "type": "action", "position": {"x": 0, "y": 100}, "data": {"message": "Welcome!"}},
		{"id": "3", "type": "delay", "position": {"x": 0, "y": 200}, "data": {"delayType": "relative", "value": 2, "unit": "hours"}},
		{"id": "4", "type": "condition", "position": {"x": 0, "y": 300}, "data": {"rules": [
			{"field": "Email", "operator": "ends with", "value": "@acme.com", "joinType": null},
			{"field": "Email", "operator": "includes", "value": "ceo", "joinType": "OR"}
		]}},
		{"id": "5", "type": "webhook", "position": {"x": 0, "y": 400}, "data": {"url": "https://example.com"}},
		{"id": "6", "type": "end", "position": {"x": 0, "y": 500}, "data": {}}
	],
	"edges": [
		{"id": "e1-2", "source": "1", "target": "2"},
		{"id": "e4-6", "source": "4", "target": "6", "sourceHandle": "true"}
	]
}`

func TestNode_UnmarshalEditorJSON(t *testing.T) {
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(editorGraph), &g))
	require.Len(t, g.Nodes, 6)

	assert.Equal(t, domain.EmptyData{Kind: domain.NodeTypeStart}, g.Nodes[0].Data)
	assert.Equal(t, domain.ActionData{Message: "Welcome!"}, g.Nodes[1].Data)

	delay := g.Nodes[2].Data.(domain.DelayData)
	assert.Equal(t, "2", delay.Value, "numeric values decode into the string field")
	assert.Equal(t, int64(2), delay.Amount())
	assert.Equal(t, domain.UnitHours, delay.Unit)

	cond := g.Nodes[3].Data.(domain.ConditionData)
	require.Len(t, cond.Rules, 2)
	assert.Equal(t, domain.Operator("ends with"), cond.Rules[0].Operator)
	assert.True(t, cond.Rules[0].Operator.Valid())
	assert.Empty(t, cond.Rules[0].JoinType)
	assert.Equal(t, domain.JoinOr, cond.Rules[1].JoinType)

	raw, ok := g.Nodes[4].Data.(domain.RawData)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", raw.Fields["url"])
	assert.False(t, g.Nodes[4].Type.Known())

	assert.Equal(t, domain.HandleTrue, g.Edges[1].SourceHandle)
	assert.Equal(t, 100.0, g.Nodes[1].Position.Y)
}

func TestNode_JSONRoundTripKeepsEditorShape(t *testing.T) {
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(editorGraph), &g))

	out, err := json.Marshal(g.Nodes[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"2","type":"action","position":{"x":0,"y":100},"data":{"message":"Welcome!"}}`, string(out))

	out, err = json.Marshal(g.Nodes[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","type":"start","position":{"x":0,"y":0},"data":{}}`, string(out))
}

func TestNode_YAML(t *testing.T) {
	src := `
id: yaml-graph
name: From YAML
nodes:
  - id: s
    type: start
  - id: a
    type: action
    data:
      message: hi
  - id: d
    type: delay
    data:
      delayType: specific
      date: "2030-01-02T03:04"
edges:
  - id: e1
    source: s
    target: a
`
	var g domain.Graph
	require.NoError(t, yaml.Unmarshal([]byte(src), &g))
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, domain.ActionData{Message: "hi"}, g.Nodes[1].Data)

	target, err := g.Nodes[2].Data.(domain.DelayData).Target()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 0, 0, time.Local), target)

	out, err := yaml.Marshal(&g)
	require.NoError(t, err)

	var again domain.Graph
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, g.Nodes, again.Nodes)
}

func TestDecodePayload_Invalid(t *testing.T) {
	_, err := domain.DecodePayload(domain.NodeTypeCondition, map[string]any{"rules": "not-a-list"})
	assert.Error(t, err)
}

func TestNormalizeOperator(t *testing.T) {
	assert.Equal(t, domain.OpNotEquals, domain.NormalizeOperator("not equals"))
	assert.Equal(t, domain.OpStartsWith, domain.NormalizeOperator("  starts   with "))
	assert.Equal(t, domain.OpEndsWith, domain.NormalizeOperator("ends_with"))
	assert.False(t, domain.Operator("greater than").Valid())
	// Spelling is case sensitive.
	assert.False(t, domain.Operator("EQUALS").Valid())
	assert.False(t, domain.Operator("Includes").Valid())
	assert.False(t, domain.Operator("Starts With").Valid())
}

func TestDelayData_Amount(t *testing.T) {
	tests := map[string]int64{
		"2":     2,
		" 15":   15,
		"7days": 7,
		"-3":    -3,
		"+4":    4,
		"abc":   0,
		"":      0,

		"99999999999999999999":  math.MaxInt64,
		"-99999999999999999999": -math.MaxInt64,
		"9223372036854775807":   math.MaxInt64,
	}
	for in, want := range tests {
		assert.Equal(t, want, domain.DelayData{Value: in}.Amount(), in)
	}
}

func TestGraph_CloneIsDeep(t *testing.T) {
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(editorGraph), &g))

	c := g.Clone()
	c.Nodes[3].Data.(domain.ConditionData).Rules[0].Value = "mutated"
	c.Edges[0].Target = "mutated"

	assert.Equal(t, "@acme.com", g.Nodes[3].Data.(domain.ConditionData).Rules[0].Value)
	assert.Equal(t, "2", g.Edges[0].Target)
}

func TestGraphPatch_Apply(t *testing.T) {
	g := &domain.Graph{ID: "g", Name: "old", Edges: []domain.Edge{{ID: "e"}}}
	name := "new"
	next := domain.GraphPatch{Name: &name}.Apply(g)

	assert.Equal(t, "new", next.Name)
	assert.Equal(t, "old", g.Name)
	assert.Equal(t, g.Edges, next.Edges)
}
