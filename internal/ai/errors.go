package ai

import (
	"errors"
	"fmt"
)

// Kind classifies why an AI call failed.
type Kind string

const (
	// KindMissingCredential means no API key is configured. Hosts should
	// prompt for one rather than show a failure banner.
	KindMissingCredential Kind = "missing_credential"
	// KindTransport covers network, HTTP status and timeout failures.
	KindTransport Kind = "transport"
	// KindInvalidResponse means the model answered with something that is
	// not a well-formed result.
	KindInvalidResponse Kind = "invalid_response"
	// KindCircuitOpen means recent failures tripped the breaker and the
	// call was not attempted.
	KindCircuitOpen Kind = "circuit_open"
)

// Error is the error type returned by Transport.Invoke and the providers.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ai: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("ai: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsMissingCredential reports whether err was caused by an absent API key.
func IsMissingCredential(err error) bool {
	return KindOf(err) == KindMissingCredential
}

func wrap(kind Kind, op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
