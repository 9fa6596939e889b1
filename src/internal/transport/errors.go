package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Sentinel errors for a single attempt.
var (
	ErrStatus    = errors.New("transport: unexpected http status")
	ErrEmptyBody = errors.New("transport: empty response body")
	ErrNoRoutes  = errors.New("transport: no routes configured")
)

// StatusError is a non-2xx answer from an endpoint or relay.
type StatusError struct {
	Code int
	Body string // first bytes of the body, for diagnostics
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("http %d", e.Code)
}

// Is lets errors.Is(err, ErrStatus) match any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Attempt records one route tried for a target.
type Attempt struct {
	Route string
	URL   string
	Err   error
}

// Error is returned when every route for a target failed.
type Error struct {
	Target   string
	Attempts []Attempt
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Route, a.Err))
	}
	return fmt.Sprintf("transport %s: all routes failed (%s)", e.Target, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Last returns the error of the most recent attempt.
func (e *Error) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Kind is a coarse failure category used to pick a user-facing message.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindUnreachable
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Classify categorises err. For an *Error the most recent attempt decides.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var te *Error
	if errors.As(err, &te) {
		if last := te.Last(); last != nil {
			return Classify(last)
		}
		return KindUnknown
	}
	var se *StatusError
	if errors.As(err, &se) {
		return KindRejected
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return KindUnreachable
	}
	return KindUnknown
}
