// Package status carries the engine's exception-free result type: a
// tagged code plus a short message, rather than a plain error.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code tags the kind of failure a Status carries.
type Code int

const (
	// OK is the zero value: success.
	OK Code = iota
	NotFound
	Corruption
	NotSupported
	InvalidArgument
	IOError
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case NotFound:
		return "not found"
	case Corruption:
		return "corruption"
	case NotSupported:
		return "not supported"
	case InvalidArgument:
		return "invalid argument"
	case IOError:
		return "io error"
	default:
		return "unknown code"
	}
}

// Status is either OK or a tagged failure with a short message and an
// optional secondary message (e.g. the offending file name).
type Status struct {
	code  Code
	msg   string
	msg2  string
	cause error
}

// OKStatus is the zero-value success Status.
var OKStatus = Status{}

func (s Status) Ok() bool   { return s.code == OK }
func (s Status) Code() Code { return s.code }

func (s Status) Error() string {
	if s.code == OK {
		return "ok"
	}
	if s.msg2 != "" {
		return fmt.Sprintf("%s: %s: %s", s.code, s.msg, s.msg2)
	}
	return fmt.Sprintf("%s: %s", s.code, s.msg)
}

// Unwrap lets callers use errors.Is/As against the wrapped cause, if any.
func (s Status) Unwrap() error { return s.cause }

func newStatus(code Code, msg string, msg2 ...string) Status {
	s := Status{code: code, msg: msg}
	if len(msg2) > 0 {
		s.msg2 = msg2[0]
	}
	return s
}

func NotFoundf(msg string, msg2 ...string) Status        { return newStatus(NotFound, msg, msg2...) }
func Corruptionf(msg string, msg2 ...string) Status      { return newStatus(Corruption, msg, msg2...) }
func NotSupportedf(msg string, msg2 ...string) Status    { return newStatus(NotSupported, msg, msg2...) }
func InvalidArgumentf(msg string, msg2 ...string) Status { return newStatus(InvalidArgument, msg, msg2...) }
func IOErrorf(msg string, msg2 ...string) Status         { return newStatus(IOError, msg, msg2...) }

// Wrap builds a surfaced IOError Status from an underlying error,
// attaching a stack trace via pkg/errors so the failure can be
// diagnosed post-mortem.
func Wrap(err error, msg string) Status {
	if err == nil {
		return OKStatus
	}
	return Status{
		code:  IOError,
		msg:   msg,
		msg2:  err.Error(),
		cause: errors.Wrap(err, msg),
	}
}

// IsNotFound reports whether err is (or wraps) a NotFound Status.
func IsNotFound(err error) bool {
	var s Status
	return errors.As(err, &s) && s.code == NotFound
}

// IsCorruption reports whether err is (or wraps) a Corruption Status.
func IsCorruption(err error) bool {
	var s Status
	return errors.As(err, &s) && s.code == Corruption
}
