package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrTimeout is returned when a gateway request exceeds its deadline.
var ErrTimeout = errors.New("gateway request timed out")

// APIError is a gateway response with status >= 400. The raw body is kept
// so callers can surface the gateway's own diagnostic.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

// ConnectionError indicates the gateway could not be reached at all,
// as opposed to reached but unhappy.
type ConnectionError struct {
	Addr string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to gateway at %s", e.Addr)
}

// wrapTransportError classifies an http.Client error into the fixed failure
// kinds of the gateway contract: timeout, connection failure, or other.
func wrapTransportError(err error, addr string) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &ConnectionError{Addr: addr}
	}

	return err
}
