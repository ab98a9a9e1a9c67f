package domain

import "time"

// Outcome describes why a traversal stopped.
type Outcome string

const (
	// OutcomeEnd means an end node was reached.
	OutcomeEnd Outcome = "end"
	// OutcomeDeadEnd means next-node resolution found nothing (no edge or dangling target).
	OutcomeDeadEnd Outcome = "dead_end"
	// OutcomeFailed means a node effect failed and the path was abandoned.
	OutcomeFailed Outcome = "failed"
	// OutcomeLimitExceeded means the step or time ceiling was hit.
	OutcomeLimitExceeded Outcome = "limit_exceeded"
	// OutcomeCanceled means the host stopped the run (shutdown).
	OutcomeCanceled Outcome = "canceled"
)

// TraversalResult is the summary of one traversal.
// Err is informational; traversal errors are never returned to the caller of Execute.
type TraversalResult struct {
	EntryNodeID string        `json:"entry_node_id"`
	Visited     []string      `json:"visited"`
	Outcome     Outcome       `json:"outcome"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
	Error       string        `json:"error,omitempty"`
}

// Report collects the traversals started by one execution.
// It holds one traversal when a start node exists, or one per action node otherwise.
type Report struct {
	RunID      string            `json:"run_id"`
	GraphID    string            `json:"graph_id"`
	Email      string            `json:"email"`
	Fallback   bool              `json:"fallback"`
	Traversals []TraversalResult `json:"traversals"`
}

// Visited returns every node visited across all traversals, in traversal order.
func (r *Report) Visited() []string {
	var out []string
	for _, t := range r.Traversals {
		out = append(out, t.Visited...)
	}
	return out
}
