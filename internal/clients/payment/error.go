package payment

import (
	"errors"
	"fmt"

	"github.com/archdemone/jewelry-backend/internal/httpx"
)

// GatewayError is a typed processor failure. Retryable errors (network,
// timeout, 408/429/5xx) get a retry affordance in checkout; the rest end the
// attempt.
type GatewayError struct {
	Status    int
	Code      string
	Message   string
	retryable bool
}

func NewGatewayError(status int, code, message string, retryable bool) *GatewayError {
	return &GatewayError{Status: status, Code: code, Message: message, retryable: retryable}
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("payment gateway: %s (%s, http %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
}

func (e *GatewayError) Retryable() bool {
	return e.retryable
}

func (e *GatewayError) HTTPStatusCode() int {
	return e.Status
}

// IsRetryable classifies any error from the gateway boundary.
func IsRetryable(err error) bool {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Retryable()
	}
	return httpx.IsRetryableError(err)
}
