package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder assembles an error out of an internal message, a
// caller-facing hint and structured safe details, then stamps it with one of
// the package sentinels. It deliberately does not implement the error
// interface: a chain only yields an error through Mark (or Error), so an
// unmarked builder cannot be returned by accident.
type ErrorBuilder struct {
	err error
}

// NewError starts a builder chain from a fresh error message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a builder chain wrapping an existing error, typically one
// coming back from the database driver or another library
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage prefixes the internal error message. Never shown to callers.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint attaches the message surfaced to API callers by the error
// middleware
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is WithHint with formatting
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured details that are safe to return
// to the caller. The map rides along as a tagged safe-detail payload the
// error middleware knows how to unpack.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, "__json__:%s", errors.Safe(string(marshaled)))
	return b
}

// Mark stamps the chain with a sentinel (ErrNotFound, ErrValidation, ...)
// and returns the finished error. Must be the last call in the chain.
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}

// Error returns the built error without marking it
func (b *ErrorBuilder) Error() error {
	return b.err
}
