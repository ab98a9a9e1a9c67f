package dsl

import (
	"errors"
	"fmt"
	"time"

	"github.com/messagemind/automaton/pkg/adapters/memory"
	"github.com/messagemind/automaton/pkg/domain"
)

// Builder manages the graph construction.
// Nodes keep the order in which they were added, which is the order the engine sees.
type Builder struct {
	id    string
	name  string
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
}

// New creates a new graph builder. The id doubles as the name until Name is called.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		name:  id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the automation name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string, t domain.NodeType) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Type: t},
		builder: b,
	}
	switch t {
	case domain.NodeTypeStart, domain.NodeTypeEnd:
		nb.node.Data = domain.EmptyData{Kind: t}
	}
	b.order = append(b.order, id)
	b.nodes[id] = nb
	return nb
}

// Start adds the trigger node.
func (b *Builder) Start(id string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeStart)
}

// End adds a terminal node.
func (b *Builder) End(id string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeEnd)
}

// Action adds a node that sends message to the run's address.
func (b *Builder) Action(id, message string) *NodeBuilder {
	nb := b.Add(id, domain.NodeTypeAction)
	nb.node.Data = domain.ActionData{Message: message}
	return nb
}

// Delay adds a delay node. See After and Until.
func (b *Builder) Delay(id string, data domain.DelayData) *NodeBuilder {
	nb := b.Add(id, domain.NodeTypeDelay)
	nb.node.Data = data
	return nb
}

// Condition adds a branching node with the given rules.
func (b *Builder) Condition(id string, rules ...domain.Rule) *NodeBuilder {
	nb := b.Add(id, domain.NodeTypeCondition)
	nb.node.Data = domain.ConditionData{Rules: rules}
	return nb
}

// Edge adds a raw edge, which may point at a node that does not exist.
func (b *Builder) Edge(source, target, handle string) *Builder {
	b.edges = append(b.edges, domain.Edge{
		ID:           fmt.Sprintf("e%d-%s-%s", len(b.edges)+1, source, target),
		Source:       source,
		Target:       target,
		SourceHandle: handle,
	})
	return b
}

// Graph assembles the graph without checks.
func (b *Builder) Graph() *domain.Graph {
	g := &domain.Graph{
		ID:    b.id,
		Name:  b.name,
		Nodes: make([]domain.Node, 0, len(b.order)),
		Edges: append([]domain.Edge(nil), b.edges...),
	}
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].node)
	}
	return g
}

// Build assembles the graph, rejecting nodes without a type.
func (b *Builder) Build() (*domain.Graph, error) {
	var errs []error
	for _, id := range b.order {
		if b.nodes[id].node.Type == "" {
			errs = append(errs, fmt.Errorf("node %s has no type", id))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidGraph, err)
	}
	return b.Graph(), nil
}

// Store compiles the graph into an in-memory repository holding just this graph.
func (b *Builder) Store() (*memory.Store, error) {
	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory store: %w", err)
	}
	return memory.NewStore(g), nil
}

// After describes a relative delay.
func After(value int, unit domain.DelayUnit) domain.DelayData {
	return domain.DelayData{
		DelayType: domain.DelayRelative,
		Value:     fmt.Sprint(value),
		Unit:      unit,
	}
}

// Until describes a delay that waits for a point in time.
func Until(t time.Time) domain.DelayData {
	return domain.DelayData{
		DelayType: domain.DelaySpecific,
		Date:      t.Format(time.RFC3339),
	}
}

// Email builds the first rule of a condition.
func Email(op domain.Operator, value string) domain.Rule {
	return domain.Rule{Field: "Email", Operator: op, Value: value}
}

// And builds a rule combined with the running result by AND.
func And(op domain.Operator, value string) domain.Rule {
	r := Email(op, value)
	r.JoinType = domain.JoinAnd
	return r
}

// Or builds a rule combined with the running result by OR.
func Or(op domain.Operator, value string) domain.Rule {
	r := Email(op, value)
	r.JoinType = domain.JoinOr
	return r
}
