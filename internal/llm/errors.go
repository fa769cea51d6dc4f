package llm

import "fmt"

// TransportError is a retryable fault: HTTP 5xx or 429, a network
// failure, a dialect error envelope with a soft code, or a JSON parse
// failure. The Retry Policy treats this kind as worth another attempt.
type TransportError struct {
	Code    string
	Message string
	// Hint carries an optional human-actionable note. The clients in
	// this repository leave it empty; auth/quota faults are FatalError.
	Hint string
}

func (e *TransportError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("transport error [%s]: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("transport error [%s]: %s", e.Code, e.Message)
}

// FatalError is a non-retryable fault: HTTP 4xx auth/quota/model-
// unsupported. Surfaced to the caller as a single-turn failure; the
// session stays alive.
type FatalError struct {
	Code    string
	Message string
	Hint    string
}

func (e *FatalError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("fatal error [%s]: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("fatal error [%s]: %s", e.Code, e.Message)
}
