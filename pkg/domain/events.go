package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter    EventType = "node_enter"
	EventNodeLeave    EventType = "node_leave"
	EventEffect       EventType = "effect"
	EventTraversalEnd EventType = "traversal_end"
)

// Effect names reported in EffectEvent.
const (
	EffectSendMessage = "send_message"
	EffectDelay       = "delay"
	EffectCondition   = "evaluate_condition"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	GraphID   string    `json:"graph_id"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeType `json:"node_type"`
}

// EffectEvent represents a side effect performed by a node.
// Detail carries the delay duration or the condition result.
type EffectEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	NodeType NodeType      `json:"node_type"`
	Effect   string        `json:"effect"`
	Detail   any           `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// TraversalEvent is emitted once per traversal when it stops.
type TraversalEvent struct {
	EventBase
	Result TraversalResult `json:"result"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnNodeLeave    func(context.Context, *NodeEvent)
	OnEffect       func(context.Context, *EffectEvent)
	OnTraversalEnd func(context.Context, *TraversalEvent)
}

// ChainHooks fans every event out to all the given hook sets in order.
func ChainHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnEffect: func(ctx context.Context, e *EffectEvent) {
			for _, h := range all {
				if h.OnEffect != nil {
					h.OnEffect(ctx, e)
				}
			}
		},
		OnTraversalEnd: func(ctx context.Context, e *TraversalEvent) {
			for _, h := range all {
				if h.OnTraversalEnd != nil {
					h.OnTraversalEnd(ctx, e)
				}
			}
		},
	}
}
