package runtime

import (
	"math"
	"strings"
	"time"

	"github.com/messagemind/automaton/pkg/domain"
)

// NextNodeID resolves the node that follows nodeID.
// When handle is non-empty only edges carrying that sourceHandle qualify.
// Among the candidates the first whose target is not an end node wins, so a stray
// edge to the end node does not cut the chain short. A dangling target counts as
// non-end. Otherwise the first candidate in stored order is used.
// It returns "" when no edge qualifies.
func NextNodeID(g *domain.Graph, nodeID, handle string) string {
	first := ""
	for _, edge := range g.Edges {
		if edge.Source != nodeID {
			continue
		}
		if handle != "" && edge.SourceHandle != handle {
			continue
		}
		if first == "" {
			first = edge.Target
		}
		if target, ok := g.Node(edge.Target); !ok || target.Type != domain.NodeTypeEnd {
			return edge.Target
		}
	}
	return first
}

// DelayDuration computes how long a delay node waits, never less than zero.
// Relative delays multiply the integer value by the unit; specific delays wait until the date.
func DelayDuration(d domain.DelayData, now time.Time) (time.Duration, error) {
	var wait time.Duration
	switch d.DelayType {
	case domain.DelayRelative:
		wait = relativeWait(d.Amount(), d.Unit.Duration())
	case domain.DelaySpecific:
		target, err := d.Target()
		if err != nil {
			return 0, err
		}
		wait = target.Sub(now)
	}
	return max(wait, 0), nil
}

// relativeWait multiplies amount by unit, saturating instead of wrapping.
func relativeWait(amount int64, unit time.Duration) time.Duration {
	if amount <= 0 || unit <= 0 {
		return 0
	}
	if amount > math.MaxInt64/int64(unit) {
		return math.MaxInt64
	}
	return time.Duration(amount) * unit
}

// EvaluateCondition folds the rules left to right against the run's email.
// An empty rule list passes. Each rule after the first combines with the running
// result through its own join type: AND, or OR for anything else.
func EvaluateCondition(rules []domain.Rule, execCtx *domain.ExecutionContext) bool {
	if len(rules) == 0 {
		return true
	}

	field := execCtx.Email
	result := false
	for i, rule := range rules {
		ok := evaluateRule(rule, field)
		switch {
		case i == 0:
			result = ok
		case rule.JoinType == domain.JoinAnd:
			result = result && ok
		default:
			result = result || ok
		}
	}
	return result
}

func evaluateRule(rule domain.Rule, field string) bool {
	switch domain.NormalizeOperator(string(rule.Operator)) {
	case domain.OpEquals:
		return field == rule.Value
	case domain.OpNotEquals:
		return field != rule.Value
	case domain.OpIncludes:
		return strings.Contains(field, rule.Value)
	case domain.OpStartsWith:
		return strings.HasPrefix(field, rule.Value)
	case domain.OpEndsWith:
		return strings.HasSuffix(field, rule.Value)
	}
	return false
}
