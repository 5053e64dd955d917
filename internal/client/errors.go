package client

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnableToConnect      = errors.New("client: unable to connect to solver")
	ErrExited               = errors.New("client: solver session has exited")
	ErrCircuitOpen          = errors.New("client: circuit open after repeated transport failures")
	ErrNonInteractiveGet    = errors.New("client: get is not available in non-interactive mode")
	ErrNestedNonInteractive = errors.New("client: non-interactive block already active")
	ErrUnsupportedDataType  = errors.New("client: unsupported data type")
	ErrInvalidObjectType    = errors.New("client: invalid object type")
	ErrUploadLength         = errors.New("client: uploaded length does not match")
	ErrRemoteListing        = errors.New("client: cannot list remote files after exit")
)

// isTransportFailure reports errors that count against the circuit breaker.
func isTransportFailure(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}

// translate maps transport failures to client errors and marks the session
// exited when the server is gone.
func (c *Client) translate(method string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, method)
	}
	if status.Code(err) == codes.Unavailable {
		if !c.exiting.Load() {
			c.markExited("lost connection during " + method)
		}
		return fmt.Errorf("%w: %s: %v", ErrExited, method, err)
	}
	return fmt.Errorf("client: %s: %w", method, err)
}
