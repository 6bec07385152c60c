package gateway

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for gateway exchanges.
type ErrorCategory string

const (
	// ErrorTimeout indicates the gateway took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorConnection indicates the connection could not be established or broke.
	ErrorConnection ErrorCategory = "connection"

	// ErrorRateLimited indicates the gateway returned 429.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorGatewayOutage indicates the gateway returned 502 or 503.
	ErrorGatewayOutage ErrorCategory = "gateway_outage"

	// ErrorHTTPStatus indicates any other non-success status.
	ErrorHTTPStatus ErrorCategory = "http_status"

	// ErrorBadReply indicates the reply body could not be read or parsed.
	ErrorBadReply ErrorCategory = "bad_reply"

	// ErrorInternal indicates an unexpected internal error.
	ErrorInternal ErrorCategory = "internal"
)

// TransportError wraps a gateway exchange failure with its normalized
// category and whether another attempt is worth making.
type TransportError struct {
	Category   ErrorCategory
	Gateway    string
	Message    string
	Underlying error
	Retryable  bool
	Attempts   int
}

func (e *TransportError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("gateway %s [%s]: %s: %v", e.Gateway, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("gateway %s [%s]: %s", e.Gateway, e.Category, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Underlying
}

// NewTransportError builds a normalized transport error. Timeouts, broken
// connections, rate limiting and gateway outages are the retryable classes;
// everything else is terminal.
func NewTransportError(category ErrorCategory, gatewayName, message string, underlying error) *TransportError {
	retryable := category == ErrorTimeout ||
		category == ErrorConnection ||
		category == ErrorRateLimited ||
		category == ErrorGatewayOutage

	return &TransportError{
		Category:   category,
		Gateway:    gatewayName,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks whether an error is worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// GetCategory extracts the category from an error.
func GetCategory(err error) ErrorCategory {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Category
	}
	return ErrorInternal
}

// Sentinel errors for construction and polling.
var (
	ErrConfiguration = errors.New("gateway configuration incomplete")
	ErrPollLimit     = errors.New("submission still pending after poll limit")
)
