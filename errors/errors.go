package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrInvalidPayload   = fmt.Errorf("invalid event payload")
	ErrControllerClosed = fmt.Errorf("controller is closed")
)

// Data source failures. The controller surfaces them as a single user-visible message.
var (
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrNotFound     = fmt.Errorf("user not found")
	ErrDecoding     = fmt.Errorf("failed to decode data")
	ErrTransport    = fmt.Errorf("transport failure")
)

// Transport wraps an underlying cause so that both ErrTransport and the cause match errors.Is.
func Transport(cause error) error {
	return fmt.Errorf("%w: %w", ErrTransport, cause)
}
