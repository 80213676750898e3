package assistant

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Timeout Kind = iota + 1
	Unavailable
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Unavailable:
		return "unavailable"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is the only error type Complete returns. Err carries transport
// detail for logs and must not be shown to users.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "assistant " + e.Kind.String()
	}
	return fmt.Sprintf("assistant %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of an assistant error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
