package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Error is a structured error carrying optional slog attributes, mirroring
// the shape used throughout this codebase's ambient error handling: a base
// message, an optionally wrapped cause, and immutable builder methods.
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// LogValue implements slog.LogValuer for structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error, preserving attrs.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, attrs: e.attrs}
}

// With adds key/value pairs to the error for structured logging, returning
// a new Error to preserve immutability of the package-level sentinels.
func (e *Error) With(kv ...any) *Error {
	attrs := make([]slog.Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		attrs = append(attrs, slog.Any(key, kv[i+1]))
	}

	merged := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(merged, e.attrs)
	copy(merged[len(e.attrs):], attrs)

	return &Error{msg: e.msg, err: e.err, attrs: merged}
}

// Location identifies the source position where an error first surfaced
// (spec.md §7 "Location enrichment").
type Location struct {
	File   string
	Line   int
	Column int
}

// String renders "file:line:column", omitting an empty file.
func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}

	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Sentinel errors, named per spec.md §7's error-kind table.
var (
	ErrSessionClosed    = NewError("session closed")
	ErrSyntax           = NewError("syntax error")
	ErrCommandNotFound  = NewError("command not found")
	ErrCommandNameNull  = NewError("command name is null")
	ErrEofIncomplete    = NewError("incomplete input")
	ErrMissingProfile   = NewError("missing profile")
	ErrHostInvoke       = NewError("host invoke failed")
	ErrInterrupted      = NewError("interrupted")
	ErrNoExprEvaluator  = NewError("no expression evaluator installed")
	ErrNoHost           = NewError("no host dispatch installed")
)

// SyntaxError builds a session.ErrSyntax instance carrying a line, column,
// and message, matching spec.md §7's SyntaxError(line,col,msg).
func SyntaxError(line, col int, msg string) *Error {
	return ErrSyntax.With("line", line, "column", col, "message", msg).Wrap(errors.New(msg))
}

// CommandNotFound builds a session.ErrCommandNotFound instance naming the
// unresolved command.
func CommandNotFound(name string) *Error {
	return ErrCommandNotFound.With("name", name)
}

// MissingProfile builds a session.ErrMissingProfile instance naming the
// unknown profile id.
func MissingProfile(id string) *Error {
	return ErrMissingProfile.With("id", id)
}

// HostInvokeError wraps a host-dispatch failure.
func HostInvokeError(err error) *Error {
	return ErrHostInvoke.Wrap(err)
}
