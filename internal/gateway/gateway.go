package gateway

import "context"

// Push is one outbound message for one device token.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Receipt stores gateway call metadata for logging and bookkeeping.
type Receipt struct {
	MessageID string
}

// Sender is the outbound push delivery port. Implementations are stateless
// per call: expected failures come back as *SendError, never as a panic, and
// never mutate anything beyond the one remote call.
type Sender interface {
	Send(ctx context.Context, push Push) (*Receipt, error)
}
