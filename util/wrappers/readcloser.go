// Package wrappers shields real streams from consumers that insist on
// closing them. The repl closes its input and output when it stops, and
// it should not take the process stdin and stdout along
package wrappers

import (
	"errors"
	"io"
)

// ErrClosed is what a wrapper reports once its Close ran
var ErrClosed = errors.New("stream wrapper closed")

// ReaderWrapper forwards reads until closed. Closing only flips the
// wrapper dead, the wrapped reader stays untouched
type ReaderWrapper struct {
	closed  bool
	wrapped io.Reader
}

func NewReaderWrapper(wraps io.Reader) *ReaderWrapper {
	return &ReaderWrapper{wrapped: wraps}
}

func (r *ReaderWrapper) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	return r.wrapped.Read(p)
}

func (r *ReaderWrapper) Close() error {
	r.closed = true
	return nil
}
