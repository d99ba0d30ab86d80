package vllm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/samcharles93/vllmc/pkg/detok"
	"github.com/samcharles93/vllmc/pkg/vllm/transport"
	"github.com/samcharles93/vllmc/pkg/vocab"
)

// ErrorKind is the stable classification both facades report. Retry policy
// is the caller's concern; the client only labels.
type ErrorKind string

const (
	KindConnection         ErrorKind = "connection"
	KindTimeout            ErrorKind = "timeout"
	KindInvalidArgument    ErrorKind = "invalid_argument"
	KindUnimplemented      ErrorKind = "unimplemented"
	KindStreamDisconnected ErrorKind = "stream_disconnected"
	KindDecoderUnavailable ErrorKind = "decoder_unavailable"
	KindInternal           ErrorKind = "internal"
	KindUnknown            ErrorKind = "unknown"
)

// Error is the typed failure container for every operation in this package.
type Error struct {
	Kind    ErrorKind
	Code    transport.StatusCode // server status when server-reported
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	return fmt.Sprintf("vllm: %s", msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is transient by nature. Only
// connection and timeout kinds qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindConnection || e.Kind == KindTimeout
}

// AsError unwraps err to a *Error when possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the classification of err, or KindUnknown for foreign
// errors.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func invalidArgument(format string, args ...any) error {
	return &Error{
		Kind:    KindInvalidArgument,
		Code:    transport.StatusInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// Classify labels an arbitrary failure with the taxonomy. The client applies
// it to its own calls; callers decoding with pkg/detok or pkg/vocab can apply
// it to decode failures for a uniform error surface.
func Classify(err error) error {
	return classify(err)
}

// classify maps a transport-level failure to the taxonomy. Caller-initiated
// context.Canceled passes through untouched so callers recognize their own
// cancellation.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}

	if errors.Is(err, detok.ErrNoVocab) || errors.Is(err, vocab.ErrUnavailable) {
		return &Error{
			Kind:    KindDecoderUnavailable,
			Message: err.Error(),
			Cause:   err,
		}
	}

	var se *transport.StatusError
	if errors.As(err, &se) {
		return &Error{
			Kind:    kindFromStatus(se.Code),
			Code:    se.Code,
			Message: se.Message,
			Cause:   se,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindTimeout,
			Code:    transport.StatusDeadlineExceeded,
			Message: "deadline exceeded",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	var op *net.OpError
	if errors.As(err, &op) || errors.As(err, &ne) {
		return &Error{
			Kind:    KindConnection,
			Code:    transport.StatusUnavailable,
			Message: fmt.Sprintf("engine unreachable: %v", err),
			Cause:   err,
		}
	}
	return &Error{
		Kind:    KindUnknown,
		Message: err.Error(),
		Cause:   err,
	}
}

// classifyStream maps a failure that occurred after the stream was opened.
// Everything short of a deadline is a disconnect: chunks already yielded
// remain valid and the failure surfaces at the iteration point.
func classifyStream(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindTimeout,
			Code:    transport.StatusDeadlineExceeded,
			Message: "deadline exceeded mid-stream",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{
		Kind:    KindStreamDisconnected,
		Message: fmt.Sprintf("stream disconnected: %v", err),
		Cause:   err,
	}
}

func kindFromStatus(code transport.StatusCode) ErrorKind {
	switch code {
	case transport.StatusUnavailable:
		return KindConnection
	case transport.StatusDeadlineExceeded:
		return KindTimeout
	case transport.StatusInvalidArgument:
		return KindInvalidArgument
	case transport.StatusUnimplemented:
		return KindUnimplemented
	case transport.StatusInternal:
		return KindInternal
	default:
		return KindUnknown
	}
}
