package llm

import "context"

// Client is the stateless request/reply bridge to a chat model
// backend, normalising whichever wire dialect it speaks into the
// internal Response shape. Concurrency is the caller's
// responsibility; a Client holds no per-session state beyond its own
// HTTP transport.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
