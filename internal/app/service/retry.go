package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"batch_transfer/internal/domain/entity"
)

// RetryPolicy bounds how a batch is retried.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts per batch, including the first one.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number between attempts (linear backoff).
	BaseDelay time.Duration
	// RetryDeterministic retries insufficient funds/allowance errors as well.
	RetryDeterministic bool
}

// DefaultRetryPolicy matches the Solana reference configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// Backoff returns the wait after a failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// ErrorClass is the retry classification of an execution error.
type ErrorClass string

const (
	ClassTransient     ErrorClass = "transient"
	ClassDeterministic ErrorClass = "deterministic"
	ClassFatal         ErrorClass = "fatal"
)

// Decision is the classification of one error.
type Decision struct {
	Class  ErrorClass
	Reason string
}

// Retryable applies the policy to the decision.
func (d Decision) Retryable(p RetryPolicy) bool {
	switch d.Class {
	case ClassTransient:
		return true
	case ClassDeterministic:
		return p.RetryDeterministic
	}
	return false
}

// Classify decides how an execution error is treated. Unknown errors are transient.
func Classify(err error) Decision {
	switch {
	case err == nil:
		return Decision{Class: ClassFatal, Reason: "nil_error"}
	case errors.Is(err, entity.ErrSignerRejected):
		return Decision{Class: ClassFatal, Reason: "signer_rejected"}
	case errors.Is(err, entity.ErrUnsupportedSigner):
		return Decision{Class: ClassFatal, Reason: "unsupported_signer"}
	case errors.Is(err, context.Canceled):
		return Decision{Class: ClassFatal, Reason: "context_canceled"}
	case errors.Is(err, entity.ErrInvalidAddress), errors.Is(err, entity.ErrInvalidAmount),
		errors.Is(err, entity.ErrAccountDerivation):
		return Decision{Class: ClassFatal, Reason: "invalid_input"}
	case errors.Is(err, entity.ErrInsufficientFunds):
		return Decision{Class: ClassDeterministic, Reason: "insufficient_funds"}
	case errors.Is(err, entity.ErrInsufficientAllowance):
		return Decision{Class: ClassDeterministic, Reason: "insufficient_allowance"}
	case errors.Is(err, entity.ErrConfirmationTimeout), errors.Is(err, context.DeadlineExceeded):
		return Decision{Class: ClassTransient, Reason: "timeout"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, deterministicMessageTokens) {
		return Decision{Class: ClassDeterministic, Reason: "message_deterministic"}
	}
	return Decision{Class: ClassTransient, Reason: "default_transient"}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var deterministicMessageTokens = []string{
	"insufficient funds",
	"insufficient balance",
	"insufficient allowance",
	"transfer amount exceeds",
	"balance is not sufficient",
	"owner does not match",
}
