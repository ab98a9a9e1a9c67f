package domain

import "time"

// NodeType defines the behavior of a step in the automation.
type NodeType string

const (
	// NodeTypeStart is the trigger; it performs no effect.
	NodeTypeStart NodeType = "start"
	// NodeTypeEnd terminates the traversal.
	NodeTypeEnd NodeType = "end"
	// NodeTypeAction delivers a message to the run's target address.
	NodeTypeAction NodeType = "action"
	// NodeTypeDelay suspends the traversal for a computed duration.
	NodeTypeDelay NodeType = "delay"
	// NodeTypeCondition evaluates rules and branches on the "true"/"false" handles.
	NodeTypeCondition NodeType = "condition"
)

// Known reports whether t is one of the node types the engine can execute.
func (t NodeType) Known() bool {
	switch t {
	case NodeTypeStart, NodeTypeEnd, NodeTypeAction, NodeTypeDelay, NodeTypeCondition:
		return true
	}
	return false
}

// Source handles used by condition nodes.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Graph is a stored automation definition.
// It is treated as immutable for the duration of one execution.
type Graph struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Nodes     []Node    `json:"nodes" yaml:"nodes"`
	Edges     []Edge    `json:"edges" yaml:"edges"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// Position holds the canvas coordinates used by the editor.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node represents one step of the automation.
// Data holds the payload matching Type (see Payload).
type Node struct {
	ID       string
	Type     NodeType
	Position Position
	Data     Payload
}

// Edge is a directed connection between two nodes.
// SourceHandle is only meaningful on edges leaving a condition node.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
}

// GraphPatch describes a partial update. Nil fields are left untouched.
type GraphPatch struct {
	Name  *string `json:"name,omitempty"`
	Nodes *[]Node `json:"nodes,omitempty"`
	Edges *[]Edge `json:"edges,omitempty"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// FirstOfType returns the first node of the given type in stored order.
func (g *Graph) FirstOfType(t NodeType) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Type == t {
			return n, true
		}
	}
	return Node{}, false
}

// NodesOfType returns every node of the given type in stored order.
func (g *Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Outgoing returns the edges leaving nodeID in stored order.
func (g *Graph) Outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy of the graph so stores can hand out isolated values.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	c := *g
	c.Nodes = make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Data = clonePayload(n.Data)
		c.Nodes[i] = n
	}
	c.Edges = append([]Edge(nil), g.Edges...)
	return &c
}

// Apply returns a copy of g with the non-nil fields of p applied.
func (p GraphPatch) Apply(g *Graph) *Graph {
	next := g.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Nodes != nil {
		next.Nodes = append([]Node(nil), (*p.Nodes)...)
	}
	if p.Edges != nil {
		next.Edges = append([]Edge(nil), (*p.Edges)...)
	}
	return next
}
