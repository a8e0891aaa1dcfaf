package chain

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Sentinel errors the Chain Client wraps every failure into, per the
// capability contract in pkg/chain. Callers use errors.Is against these,
// never against the underlying transport error.
var (
	// RpcUnavailable means the request never produced a response: dial
	// failures, timeouts, connection resets, context deadlines.
	RpcUnavailable = errors.New("chain: rpc unavailable")

	// NotFound means the remote answered but reported nothing at the
	// requested height (the block doesn't exist yet).
	NotFound = errors.New("chain: not found")

	// RpcProtocol means the remote answered with something the client
	// could not make sense of.
	RpcProtocol = errors.New("chain: malformed rpc response")
)

// classify maps a raw error from ethclient/rpc into one of the sentinels
// above, wrapping the original error for diagnostics.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return wrap(RpcUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(RpcUnavailable, err)
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "no such"):
		return wrap(NotFound, err)
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "eof"),
		strings.Contains(lower, "broken pipe"):
		return wrap(RpcUnavailable, err)
	case strings.Contains(lower, "invalid"),
		strings.Contains(lower, "parse"),
		strings.Contains(lower, "unmarshal"),
		strings.Contains(lower, "unexpected"):
		return wrap(RpcProtocol, err)
	default:
		// Unrecognized transport noise defaults to unavailable so the
		// unconditional retry policy in retry.go still applies to it.
		return wrap(RpcUnavailable, err)
	}
}

// errorClass returns the metrics label for a classified error.
func errorClass(err error) string {
	switch {
	case errors.Is(err, NotFound):
		return "not_found"
	case errors.Is(err, RpcProtocol):
		return "protocol"
	case errors.Is(err, RpcUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}

type wrappedError struct {
	sentinel error
	cause    error
}

func wrap(sentinel, cause error) error {
	return &wrappedError{sentinel: sentinel, cause: cause}
}

func (e *wrappedError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *wrappedError) Unwrap() []error {
	return []error{e.sentinel, e.cause}
}
