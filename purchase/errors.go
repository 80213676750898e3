package purchase

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every amount or currency mismatch.
var ErrValidation = errors.New("purchase validation failed")

// TransportError reports a failed call to the messaging gateway.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
