package validator

import (
	"fmt"
	"strings"

	"github.com/messagemind/automaton/pkg/domain"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about a graph.
type Issue struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"nodeId,omitempty"`
	EdgeID   string   `json:"edgeId,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	ref := i.NodeID
	if i.EdgeID != "" {
		ref = "edge " + i.EdgeID
	}
	if ref == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, ref, i.Message)
}

// Report lists every finding. The executor runs graphs regardless; the report is advisory.
type Report struct {
	GraphID string  `json:"graphId"`
	Issues  []Issue `json:"issues"`
}

// Valid reports whether there are no error-level issues.
func (r *Report) Valid() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Err folds error-level issues into a single error, or returns nil.
func (r *Report) Err() error {
	var msgs []string
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.String())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrInvalidGraph, len(msgs), strings.Join(msgs, "\n- "))
}

func (r *Report) add(sev Severity, nodeID, edgeID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		NodeID:   nodeID,
		EdgeID:   edgeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// ValidateGraph checks for broken edges, unreachable nodes and malformed node data.
func ValidateGraph(g *domain.Graph) *Report {
	r := &Report{GraphID: g.ID, Issues: []Issue{}}

	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			r.add(SeverityError, n.ID, "", "duplicate node id")
		}
		seen[n.ID] = true
		checkNode(r, n)
	}

	for _, e := range g.Edges {
		if !seen[e.Source] {
			r.add(SeverityError, "", e.ID, "source %q does not exist", e.Source)
		}
		if !seen[e.Target] {
			r.add(SeverityError, "", e.ID, "target %q does not exist", e.Target)
		}
	}

	checkConditionHandles(r, g)

	start, ok := g.FirstOfType(domain.NodeTypeStart)
	if !ok {
		if len(g.NodesOfType(domain.NodeTypeAction)) == 0 {
			r.add(SeverityError, "", "", "no start node and no action nodes")
		} else {
			r.add(SeverityWarning, "", "", "no start node: every action node will run as an entry point")
		}
		return r
	}
	if n := len(g.NodesOfType(domain.NodeTypeStart)); n > 1 {
		r.add(SeverityWarning, "", "", "%d start nodes: only %q is used", n, start.ID)
	}

	reached := reachable(g, start.ID)
	for _, n := range g.Nodes {
		if !reached[n.ID] {
			r.add(SeverityWarning, n.ID, "", "unreachable from start node %q", start.ID)
		}
	}
	return r
}

func checkNode(r *Report, n domain.Node) {
	if !n.Type.Known() {
		r.add(SeverityWarning, n.ID, "", "unknown node type %q ends the path", n.Type)
		return
	}
	switch d := n.Data.(type) {
	case domain.ActionData:
		if strings.TrimSpace(d.Message) == "" {
			r.add(SeverityWarning, n.ID, "", "action has an empty message")
		}
	case domain.DelayData:
		switch d.DelayType {
		case domain.DelaySpecific:
			if _, err := d.Target(); err != nil {
				r.add(SeverityError, n.ID, "", "invalid date %q", d.Date)
			}
		default:
			if d.Unit.Duration() == 0 {
				r.add(SeverityWarning, n.ID, "", "unknown unit %q waits zero", d.Unit)
			}
		}
	case domain.ConditionData:
		for i, rule := range d.Rules {
			if !rule.Operator.Valid() {
				r.add(SeverityWarning, n.ID, "", "rule %d has unknown operator %q", i, rule.Operator)
			}
		}
	}
}

func checkConditionHandles(r *Report, g *domain.Graph) {
	for _, n := range g.NodesOfType(domain.NodeTypeCondition) {
		counts := map[string]int{}
		for _, e := range g.Outgoing(n.ID) {
			switch e.SourceHandle {
			case domain.HandleTrue, domain.HandleFalse:
				counts[e.SourceHandle]++
			default:
				r.add(SeverityWarning, n.ID, e.ID, "edge handle %q is never taken", e.SourceHandle)
			}
		}
		for _, h := range []string{domain.HandleTrue, domain.HandleFalse} {
			if counts[h] > 1 {
				r.add(SeverityWarning, n.ID, "", "%d edges on handle %q: non-end targets are preferred", counts[h], h)
			}
		}
	}
}

func reachable(g *domain.Graph, from string) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, e := range g.Outgoing(current) {
			if !visited[e.Target] {
				queue = append(queue, e.Target)
			}
		}
	}
	return visited
}
