package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/dmitrijs2005/visitdesk/internal/netx"
)

var (
	ErrUnavailable  = errors.New("backend unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("record not found")
)

// StatusError is a non-2xx answer carrying the backend's message.
type StatusError = netx.StatusError

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var se *netx.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrUnauthorized, se)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, se)
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %w", ErrUnavailable, se)
		}
		return se
	}

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &ne) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("backend request: %w", err)
}

// Message returns the text to show an operator for a failed call: the
// backend's own message when it sent one, a generic fallback otherwise.
func Message(err error) string {
	var se *netx.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	switch {
	case errors.Is(err, ErrUnavailable):
		return "Backend is unavailable, please retry"
	case errors.Is(err, ErrUnauthorized):
		return "Not authorized"
	case errors.Is(err, ErrNotFound):
		return "Record no longer exists"
	}
	return "Update failed"
}
