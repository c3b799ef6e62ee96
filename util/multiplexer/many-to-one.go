// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package multiplexer wraps channels for the two fan shapes the
// compositor needs: many producers feeding the one loop, and one
// producer feeding a changing set of subscribers. Raw channels cover
// neither on their own, sending on a closed channel explodes and
// receivers that come and go need bookkeeping
package multiplexer

import (
	"errors"
	"sync/atomic"
)

// ErrClosed reports a send or subscribe on a plexer that already shut down
var ErrClosed = errors.New("multiplexer has been closed")

// ManyToOne funnels messages from any number of goroutines into one
// receiving channel. The wrapper earns its keep at shutdown: sends after
// Close report ErrClosed instead of panicking.
// Closing while a sender is blocked on a full channel is still on the
// caller, stop the senders first
type ManyToOne[T any] struct {
	outbound chan T
	closed   atomic.Bool
}

// NewManyToOne wraps the given channel. The receiving side keeps reading
// from the channel directly, only sends go through the plexer
func NewManyToOne[T any](receiver chan T) ManyToOne[T] {
	return ManyToOne[T]{outbound: receiver}
}

// Send delivers one message, blocking while the receiver is behind
func (m *ManyToOne[T]) Send(msg T) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.outbound <- msg
	return nil
}

// Close shuts the underlying channel. Calling it again does nothing
func (m *ManyToOne[T]) Close() {
	if m.closed.Swap(true) {
		return
	}
	close(m.outbound)
}
