package memory

import (
	"context"
	"sync"

	"github.com/messagemind/automaton/pkg/domain"
)

// Outbox implements ports.MessageSender by recording messages instead of delivering them.
// Safe for concurrent use; fan-out traversals send from several goroutines.
type Outbox struct {
	mu       sync.Mutex
	messages []domain.Message
	failFor  map[string]error
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{failFor: make(map[string]error)}
}

// FailOn makes Send return err for messages whose text equals text.
func (o *Outbox) FailOn(text string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failFor[text] = err
}

// Send records the message.
func (o *Outbox) Send(ctx context.Context, msg domain.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err, ok := o.failFor[msg.Text]; ok {
		return err
	}
	o.messages = append(o.messages, msg)
	return nil
}

// Messages returns a snapshot of everything sent so far.
func (o *Outbox) Messages() []domain.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Message(nil), o.messages...)
}

// Texts returns the bodies of the sent messages in send order.
func (o *Outbox) Texts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.messages))
	for i, m := range o.messages {
		out[i] = m.Text
	}
	return out
}
