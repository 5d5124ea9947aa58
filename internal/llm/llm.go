// Package llm adapts hosted chat-completion endpoints behind a single
// Completer interface. Calls are fire-and-forget: one attempt, no retry, no
// backoff; failures carry a kind so callers can surface them precisely.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// SamplingTemperature is fixed for every analysis call. Replies are not
// reproducible bit-for-bit.
const SamplingTemperature = 0.6

// Completer submits one system/user message pair and returns the raw reply
// text. Implementations never retry; a failed call returns a *CallError.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureAuth
	FailureRateLimit
	FailureServer
	FailureEmpty
	FailureConfig
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureAuth:
		return "auth"
	case FailureRateLimit:
		return "rate-limit"
	case FailureServer:
		return "server"
	case FailureEmpty:
		return "empty-completion"
	case FailureConfig:
		return "config"
	default:
		return "unknown"
	}
}

// CallError is the typed failure for a single completion attempt.
type CallError struct {
	Kind FailureKind
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm %s failure: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// KindOf reports the failure kind of err, defaulting to transport when err
// is not a *CallError.
func KindOf(err error) FailureKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return FailureTransport
}

func classify(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTransport
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTransport
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "authentication"):
		return FailureAuth
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return FailureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "status: 5") || strings.Contains(msg, "server error"):
		return FailureServer
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "timeout"):
		return FailureTransport
	default:
		return FailureServer
	}
}

// Disabled is a Completer that fails every call with the configuration
// error captured at startup. It keeps a misconfigured process alive so the
// failure surfaces at first use, per the environment contract.
type Disabled struct {
	Reason error
}

func (d Disabled) Complete(context.Context, string, string) (string, error) {
	return "", &CallError{Kind: FailureConfig, Err: d.Reason}
}
