// Package errs defines the failure kinds shared by every stage of a patch run.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoot reports a tree root that is missing or cannot be enumerated.
	ErrInvalidRoot = errors.New("invalid tree root")
	// ErrIO reports a read or write failure while hashing, encoding or archiving.
	ErrIO = errors.New("i/o failure")
	// ErrFormatViolation reports a broken internal invariant.
	ErrFormatViolation = errors.New("format violation")
)

// Error carries a failure kind together with the operation and path it hit.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// InvalidRoot wraps err as an ErrInvalidRoot failure for root.
func InvalidRoot(root string, err error) error {
	return &Error{Kind: ErrInvalidRoot, Op: "open root", Path: root, Err: err}
}

// IO wraps err as an ErrIO failure. A nil err yields nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: ErrIO, Op: op, Path: path, Err: err}
}

// Formatf builds an ErrFormatViolation failure.
func Formatf(format string, args ...any) error {
	return &Error{Kind: ErrFormatViolation, Err: fmt.Errorf(format, args...)}
}
