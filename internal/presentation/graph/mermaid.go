package graph

import (
	"fmt"
	"strings"

	"github.com/messagemind/automaton/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	FailedNode   string
}

// OverlayFromReport highlights every node a run visited and the node where a path failed.
func OverlayFromReport(r *domain.Report) *GraphOverlay {
	o := &GraphOverlay{VisitedNodes: r.Visited()}
	for _, t := range r.Traversals {
		if t.Outcome == domain.OutcomeFailed && len(t.Visited) > 0 {
			o.FailedNode = t.Visited[len(t.Visited)-1]
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the automation.
// It applies semantic styling:
// - Start/End: ((Circle))
// - Action: [Rectangle] with the message
// - Delay: [/Parallelogram/] with the wait
// - Condition: {Rhombus} with the rules
// Edges leaving a condition are labelled with their handle.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeStart, domain.NodeTypeEnd:
			opener, closer = "((", "))"
		case domain.NodeTypeDelay:
			opener, closer = "[/", "/]"
		case domain.NodeTypeCondition:
			opener, closer = "{", "}"
		}

		label := node.ID
		if detail := describe(node); detail != "" {
			label = fmt.Sprintf("%s <br/> %s", node.ID, detail)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer)
	}

	for _, e := range g.Edges {
		arrow := "-->"
		if e.SourceHandle != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(e.SourceHandle))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.FailedNode != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.FailedNode))
		}
	}

	return sb.String()
}

func describe(n domain.Node) string {
	switch d := n.Data.(type) {
	case domain.ActionData:
		return truncate(d.Message, 40)
	case domain.DelayData:
		if d.DelayType == domain.DelaySpecific {
			return "⏱️ until " + d.Date
		}
		return fmt.Sprintf("⏱️ %d %s", d.Amount(), d.Unit)
	case domain.ConditionData:
		parts := make([]string, 0, len(d.Rules))
		for i, r := range d.Rules {
			clause := fmt.Sprintf("%s %s %s", r.Field, r.Operator, r.Value)
			if i > 0 {
				join := domain.JoinOr
				if r.JoinType == domain.JoinAnd {
					join = domain.JoinAnd
				}
				clause = join + " " + clause
			}
			parts = append(parts, clause)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// escape replaces double quotes, which would close a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// "end" is a Mermaid keyword.
	if strings.EqualFold(s, "end") {
		s += "_"
	}
	return s
}
