// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/mia-platform/sluice/internal/logger"
)

const (
	loggerName = "sluice:event"
)

// Handler observes one event. A returned error is logged by the Hub.
type Handler[T any] func(ctx context.Context, payload T) error

// Hub maps every Kind to its ordered list of handlers.
type Hub[T any] struct {
	verbose bool

	lock     sync.RWMutex
	handlers map[Kind][]Handler[T]
}

// New returns an empty Hub. When verbose is true every emission is logged with its payload.
func New[T any](verbose bool) *Hub[T] {
	return &Hub[T]{
		verbose:  verbose,
		handlers: make(map[Kind][]Handler[T]),
	}
}

// Register appends handler to the list of kind. The same handler can be registered more than once.
func (h *Hub[T]) Register(kind Kind, handler Handler[T]) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.handlers[kind] = append(h.handlers[kind], handler)
}

// Emit runs every handler registered for kind, one after the other.
func (h *Hub[T]) Emit(ctx context.Context, kind Kind, payload T) {
	log := logger.Named(ctx, loggerName)
	if h.verbose {
		log.Info("event emitted", "event", kind.String(), "payload", payload)
	}

	h.lock.RLock()
	handlers := h.handlers[kind]
	h.lock.RUnlock()

	for index, handler := range handlers {
		if err := invoke(ctx, handler, payload); err != nil {
			log.Error("event handler failed", "event", kind.String(), "handler", index, "error", err)
		}
	}
}

// invoke calls handler turning a panic into an error.
func invoke[T any](ctx context.Context, handler Handler[T], payload T) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler panic: %v", recovered)
		}
	}()

	return handler(ctx, payload)
}
