package errors

import (
	"errors"
	"fmt"
)

// Error is the application error type: a message, an optional HTTP-ish
// code, the wrapped cause, and free-form context pairs.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue is a context entry attached to an error.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a new error.
func New(message string) *Error {
	return &Error{Message: message}
}

// Errorf creates a new formatted error.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// WithCode creates a new error carrying a code.
func WithCode(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCodef creates a new coded error with a formatted message.
func WithCodef(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a message. Returns nil for a nil error.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// WithContext returns a copy of the error with an extra context pair.
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}
	clone := &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Context: make([]KeyValue, len(e.Context), len(e.Context)+1),
	}
	copy(clone.Context, e.Context)
	clone.Context = append(clone.Context, KeyValue{Key: key, Value: value})
	return clone
}

// GetCode returns the code of an application error, 0 otherwise.
func GetCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// GetMessage returns the message of an error, "" for nil.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Cause walks the wrap chain and returns the innermost error.
func Cause(err error) error {
	for {
		var e *Error
		if errors.As(err, &e) && e.Err != nil {
			err = e.Err
			continue
		}
		return err
	}
}
