package dsl

import "github.com/messagemind/automaton/pkg/domain"

// NodeBuilder provides a fluent API for wiring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Then adds an unconditional edge to target.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	n.builder.Edge(n.node.ID, target, "")
	return n
}

// True adds the edge followed when the condition holds.
func (n *NodeBuilder) True(target string) *NodeBuilder {
	n.builder.Edge(n.node.ID, target, domain.HandleTrue)
	return n
}

// False adds the edge followed when the condition fails.
func (n *NodeBuilder) False(target string) *NodeBuilder {
	n.builder.Edge(n.node.ID, target, domain.HandleFalse)
	return n
}

// At sets the editor canvas position.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
