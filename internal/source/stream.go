// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"sync"

	"github.com/mia-platform/sluice/internal/record"
)

// Stream is a push based source with explicit flow control.
type Stream interface {
	// Subscribe attaches a new set of listeners and resumes the emission of signals.
	Subscribe() *Subscription
	// Pause asks the stream to stop emitting units until the next Subscribe.
	Pause()
	// Readable reports whether the stream can still emit units. It turns false after the
	// end of the input or a fatal error.
	Readable() bool
}

// Subscription exposes the signals emitted by a Stream for a single listening cycle.
// Close must always be called to detach the listeners.
type Subscription struct {
	data   chan record.Record
	rows   chan record.Record
	header chan any
	end    chan struct{}
	err    chan error
	done   chan struct{}

	served    bool
	closeOnce sync.Once
	endOnce   sync.Once
	detach    func(*Subscription)
}

// NewSubscription returns a Subscription. detach, when not nil, is called once on Close.
func NewSubscription(detach func(*Subscription)) *Subscription {
	return &Subscription{
		data:   make(chan record.Record),
		rows:   make(chan record.Record),
		header: make(chan any),
		end:    make(chan struct{}),
		err:    make(chan error, 1),
		done:   make(chan struct{}),
		detach: detach,
	}
}

// Data is the generic "new unit" signal.
func (s *Subscription) Data() <-chan record.Record { return s.data }

// Rows is the row oriented "new unit" signal.
func (s *Subscription) Rows() <-chan record.Record { return s.rows }

// Header carries the optional out of band header value.
func (s *Subscription) Header() <-chan any { return s.header }

// End is closed when the stream has no more units.
func (s *Subscription) End() <-chan struct{} { return s.end }

// Err carries read failures.
func (s *Subscription) Err() <-chan error { return s.err }

// Done is closed when the subscription has been closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close detaches the listeners. It is safe to call it more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.detach != nil {
			s.detach(s)
		}
	})
}

// Send delivers unit on the matching signal. It reports false if the subscription
// has been closed before the unit was received.
func (s *Subscription) Send(unit Unit) bool {
	switch unit.Kind {
	case UnitHeader:
		select {
		case s.header <- unit.Header:
			return true
		case <-s.done:
			return false
		}
	case UnitRow:
		select {
		case s.rows <- unit.Record:
			return true
		case <-s.done:
			return false
		}
	default:
		select {
		case s.data <- unit.Record:
			return true
		case <-s.done:
			return false
		}
	}
}

// SendError delivers err on the error signal. It reports false if the subscription
// has been closed before the error was received.
func (s *Subscription) SendError(err error) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.err <- err:
		return true
	case <-s.done:
		return false
	}
}

// Finish signals the end of the stream, or a fatal error when err is not nil.
// It never blocks.
func (s *Subscription) Finish(err error) {
	s.endOnce.Do(func() {
		if err != nil {
			select {
			case s.err <- err:
			default:
			}
			return
		}
		close(s.end)
	})
}
