// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var _ Stream = &Emitter{}

// Emitter adapts a Reader to the Stream contract.
// The reader is polled by a single goroutine, and only while there is an active,
// unpaused subscription that has not received a data or row unit yet: at most one
// unit is ever outstanding between the reader and the consumer.
type Emitter struct {
	reader Reader

	ctx    context.Context
	cancel context.CancelFunc

	lock     sync.Mutex
	cond     *sync.Cond
	active   *Subscription
	paused   bool
	started  bool
	closed   bool
	finished bool
	finalErr error
}

// NewEmitter returns a Stream reading from reader. The reader is not touched
// until the first call to Subscribe.
func NewEmitter(reader Reader) *Emitter {
	ctx, cancel := context.WithCancel(context.Background())
	emitter := &Emitter{
		reader: reader,
		ctx:    ctx,
		cancel: cancel,
	}
	emitter.cond = sync.NewCond(&emitter.lock)
	return emitter
}

// Subscribe implements Stream.
func (e *Emitter) Subscribe() *Subscription {
	sub := NewSubscription(e.detach)

	e.lock.Lock()
	defer e.lock.Unlock()

	if e.finished || e.closed {
		sub.Finish(e.finalErr)
		return sub
	}

	e.active = sub
	e.paused = false
	if !e.started {
		e.started = true
		go e.run()
	}
	e.cond.Broadcast()
	return sub
}

// Pause implements Stream.
func (e *Emitter) Pause() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.paused = true
}

// Readable implements Stream.
func (e *Emitter) Readable() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return !e.finished && !e.closed
}

// Close stops the polling goroutine and closes the underlying reader.
func (e *Emitter) Close() error {
	e.lock.Lock()
	if e.closed {
		e.lock.Unlock()
		return nil
	}
	e.closed = true
	active := e.active
	e.cond.Broadcast()
	e.lock.Unlock()

	if active != nil {
		active.Finish(nil)
	}
	e.cancel()
	return e.reader.Close()
}

func (e *Emitter) detach(sub *Subscription) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.active == sub {
		e.active = nil
	}
}

// awaitDemand blocks until a subscription is ready to receive a unit.
// It returns nil once the emitter has been closed.
func (e *Emitter) awaitDemand() *Subscription {
	e.lock.Lock()
	defer e.lock.Unlock()

	for !e.closed && (e.active == nil || e.paused || e.active.served) {
		e.cond.Wait()
	}

	if e.closed {
		return nil
	}
	return e.active
}

func (e *Emitter) run() {
	for {
		if e.awaitDemand() == nil {
			return
		}

		unit, err := e.reader.Read(e.ctx)
		switch {
		case err == nil:
			e.deliver(unit)
		case errors.Is(err, ErrSkippable):
			e.deliverError(err)
		case errors.Is(err, io.EOF), e.ctx.Err() != nil:
			e.finish(nil)
			return
		default:
			e.finish(err)
			return
		}
	}
}

// deliver hands unit to the first subscription able to receive it, preserving order.
func (e *Emitter) deliver(unit Unit) {
	for {
		sub := e.awaitDemand()
		if sub == nil {
			return
		}

		if sub.Send(unit) {
			if unit.Kind != UnitHeader {
				e.lock.Lock()
				sub.served = true
				e.lock.Unlock()
				e.commit()
			}
			return
		}
	}
}

// commit acknowledges the delivered unit to readers implementing Committer.
// A failed commit is reported to the next subscription as a skippable error.
func (e *Emitter) commit() {
	committer, ok := e.reader.(Committer)
	if !ok {
		return
	}

	if err := committer.Commit(e.ctx); err != nil && e.ctx.Err() == nil {
		e.deliverError(fmt.Errorf("%w: commit: %w", ErrSkippable, err))
	}
}

func (e *Emitter) deliverError(err error) {
	for {
		sub := e.awaitDemand()
		if sub == nil || sub.SendError(err) {
			return
		}
	}
}

func (e *Emitter) finish(err error) {
	e.lock.Lock()
	e.finished = true
	e.finalErr = err
	active := e.active
	e.lock.Unlock()

	if active != nil {
		active.Finish(err)
	}
}
