package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrGraphNotFound is returned when an automation id cannot be found in the store.
var ErrGraphNotFound = errors.New("automation not found")

// ErrNodeNotFound is reported when traversal reaches a node id absent from the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateName is returned when another automation already uses the name.
var ErrDuplicateName = errors.New("automation name already exists")

// ErrInvalidGraph is returned when an automation fails basic structural checks on write.
var ErrInvalidGraph = errors.New("invalid automation")

// ErrInvalidDate is returned when a specific delay carries an unparseable date.
var ErrInvalidDate = errors.New("invalid delay date")

// ErrTraversalLimitExceeded signals that a traversal ran past its step or time ceiling.
var ErrTraversalLimitExceeded = errors.New("traversal limit exceeded")

// EffectError wraps a failure raised while performing a node's side effect.
type EffectError struct {
	NodeID   string
	NodeType NodeType
	Err      error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("%s node '%s' failed: %v", e.NodeType, e.NodeID, e.Err)
}

func (e *EffectError) Unwrap() error { return e.Err }

// TraversalLimitError describes which ceiling stopped a traversal.
type TraversalLimitError struct {
	MaxSteps    int
	MaxDuration time.Duration
	Steps       int
	Elapsed     time.Duration
}

func (e *TraversalLimitError) Error() string {
	if e.MaxSteps > 0 && e.Steps >= e.MaxSteps {
		return fmt.Sprintf("%v: visited %d nodes (max %d)", ErrTraversalLimitExceeded, e.Steps, e.MaxSteps)
	}
	return fmt.Sprintf("%v: ran for %v (max %v)", ErrTraversalLimitExceeded, e.Elapsed.Round(time.Millisecond), e.MaxDuration)
}

func (e *TraversalLimitError) Unwrap() error { return ErrTraversalLimitExceeded }
