package wrappers

import "io"

// WriterWrapper forwards writes until closed, same deal as the reader
type WriterWrapper struct {
	closed  bool
	wrapped io.Writer
}

func NewWriterWrapper(wraps io.Writer) *WriterWrapper {
	return &WriterWrapper{wrapped: wraps}
}

func (w *WriterWrapper) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.wrapped.Write(p)
}

func (w *WriterWrapper) Close() error {
	w.closed = true
	return nil
}
