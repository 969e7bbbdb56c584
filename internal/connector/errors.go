package connector

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the normalized failure class of a connector error.
type Kind int

const (
	// Transient failures are retried naturally on the next tick.
	Transient Kind = iota
	// Fatal failures will not resolve by retrying (bad request, unsupported).
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrUnsupported is returned when a venue lacks a required capability.
var ErrUnsupported = errors.New("capability not supported")

// Error is a connector failure with its normalized kind.
type Error struct {
	Kind     Kind
	Exchange string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Exchange, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError is implemented by transport errors that carry an HTTP status.
type StatusError interface {
	error
	Status() int
}

// Classify wraps err as an *Error, deciding its kind once at the boundary.
// An err that is already an *Error is returned unchanged.
func Classify(exchange, op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Kind: kindOf(err), Exchange: exchange, Op: op, Err: err}
}

// KindOf returns the kind of a classified error. Unclassified errors count as
// transient: the task fails and the next tick retries from the durable cursor.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Transient
}

func kindOf(err error) Kind {
	if errors.Is(err, ErrUnsupported) {
		return Fatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	var se StatusError
	if errors.As(err, &se) {
		code := se.Status()
		if code == 429 || code >= 500 {
			return Transient
		}
		if code >= 400 {
			return Fatal
		}
	}

	// Network failures and malformed payloads are upstream hiccups.
	return Transient
}
