package ports

import (
	"context"

	"github.com/messagemind/automaton/pkg/domain"
)

// GraphStore is the read side the engine needs.
type GraphStore interface {
	// Get returns the automation with the given id.
	// Returns domain.ErrGraphNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Graph, error)
}

// GraphRepository persists automation definitions.
// Implementations must return copies so callers cannot mutate stored graphs.
type GraphRepository interface {
	GraphStore

	// Create stores a new automation. ID and timestamps are assigned by the caller.
	// Returns domain.ErrDuplicateName if the name is taken.
	Create(ctx context.Context, g *domain.Graph) error

	// List returns all automations, newest first.
	List(ctx context.Context) ([]*domain.Graph, error)

	// Update replaces a stored automation.
	// Returns domain.ErrGraphNotFound or domain.ErrDuplicateName.
	Update(ctx context.Context, g *domain.Graph) error

	// Delete removes an automation.
	// Returns domain.ErrGraphNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// MessageSender delivers a message on behalf of an action node.
type MessageSender interface {
	Send(ctx context.Context, msg domain.Message) error
}

// MessageSenderFunc adapts a plain function to MessageSender.
type MessageSenderFunc func(ctx context.Context, msg domain.Message) error

func (f MessageSenderFunc) Send(ctx context.Context, msg domain.Message) error {
	return f(ctx, msg)
}
