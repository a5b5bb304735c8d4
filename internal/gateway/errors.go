package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// classify wraps connectivity failures in shared.ErrGatewayUnavailable so the
// data access layer can decide to queue the write offline. Semantic failures
// (constraint violations, bad input) pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isUnreachable(err) {
		return fmt.Errorf("%w: %v", shared.ErrGatewayUnavailable, err)
	}
	return err
}

func isUnreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	return false
}

// IsUnavailable reports whether err means the remote store was unreachable.
func IsUnavailable(err error) bool {
	return errors.Is(err, shared.ErrGatewayUnavailable)
}
