package ai

import "context"

// Message roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

// Client sends one chat completion to one model and returns the text content.
type Client interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}
