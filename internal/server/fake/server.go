// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/mia-platform/sluice/internal/server"
)

var _ server.Server = &Server{}

type Route struct {
	Method  string
	Path    string
	Handler server.Handler
}

// Server records the registered routes and lets tests invoke their handlers without
// opening any socket.
type Server struct {
	tb testing.TB

	lock   sync.Mutex
	routes []Route

	startedChan chan struct{}
	closedChan  chan struct{}
	closeOnce   sync.Once
}

func NewFakeServer(tb testing.TB) *Server {
	tb.Helper()

	return &Server{
		tb:          tb,
		startedChan: make(chan struct{}),
		closedChan:  make(chan struct{}),
	}
}

func (s *Server) AddRoute(method string, path string, handler server.Handler) {
	s.tb.Helper()

	s.lock.Lock()
	defer s.lock.Unlock()
	s.routes = append(s.routes, Route{
		Method:  method,
		Path:    path,
		Handler: handler,
	})
}

// Routes returns a copy of the registered routes.
func (s *Server) Routes() []Route {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Route(nil), s.routes...)
}

// Call invokes the handler registered for method and path.
func (s *Server) Call(ctx context.Context, method, path string, headers http.Header, body []byte) error {
	s.tb.Helper()

	for _, route := range s.Routes() {
		if route.Method == method && route.Path == path {
			if headers == nil {
				headers = http.Header{}
			}
			return route.Handler(ctx, headers, body)
		}
	}
	return fmt.Errorf("no route registered for %s %s", method, path)
}

func (s *Server) Start() error {
	s.tb.Helper()
	close(s.startedChan)
	<-s.closedChan
	return nil
}

func (s *Server) Stop() error {
	s.tb.Helper()
	s.closeOnce.Do(func() { close(s.closedChan) })
	return nil
}

func (s *Server) StartAsync(_ context.Context) {
	s.tb.Helper()
	go func() {
		_ = s.Start()
	}()
}

func (s *Server) StartedServer() <-chan struct{} {
	return s.startedChan
}

func (s *Server) StoppedServer() <-chan struct{} {
	return s.closedChan
}
