package domain

// ExecutionContext is the ephemeral state of one run.
// It lives only for the duration of the execution and is never persisted.
type ExecutionContext struct {
	RunID     string
	GraphID   string
	Email     string
	Variables map[string]any
}

// NewExecutionContext seeds the variables with the target email.
func NewExecutionContext(runID, graphID, email string) *ExecutionContext {
	return &ExecutionContext{
		RunID:     runID,
		GraphID:   graphID,
		Email:     email,
		Variables: map[string]any{"email": email},
	}
}

// Message is an outgoing notification handed to a MessageSender.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}
