// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package webhook implements a push based source receiving records over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/server"
	"github.com/mia-platform/sluice/internal/source"
)

const (
	loggerName = "sluice:source:webhook"

	RecordsPath = "/records"
	EndPath     = "/-/end"
)

var _ source.Reader = &Reader{}

// Reader receives records pushed to the server. A request is answered only after each of its
// records has been handed to the pipeline, so slow destinations slow down the clients.
type Reader struct {
	units chan record.Record

	done      chan struct{}
	closeOnce sync.Once
}

// New registers the webhook routes on srv and returns the Reader fed by them.
func New(srv server.Server) *Reader {
	r := &Reader{
		units: make(chan record.Record),
		done:  make(chan struct{}),
	}

	srv.AddRoute(http.MethodPost, RecordsPath, r.receive)
	srv.AddRoute(http.MethodPost, EndPath, func(ctx context.Context, _ http.Header, _ []byte) error {
		logger.Named(ctx, loggerName).Info("end of stream requested")
		return r.Close()
	})
	return r
}

func (r *Reader) receive(ctx context.Context, _ http.Header, body []byte) error {
	log := logger.Named(ctx, loggerName)

	records, err := decode(body)
	if err != nil {
		return fmt.Errorf("%w: %w", server.ErrBadRequest, err)
	}

	log.Debug("records received", "count", len(records))
	for i, values := range records {
		select {
		case r.units <- values:
		case <-r.done:
			return fmt.Errorf("%w: stream ended after %d of %d records", server.ErrUnavailable, i, len(records))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// decode accepts either a single JSON object or an array of objects.
func decode(body []byte) ([]record.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	if trimmed[0] == '[' {
		var records []record.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		for i, values := range records {
			if values == nil {
				return nil, fmt.Errorf("element %d is not an object", i)
			}
		}
		return records, nil
	}

	var values record.Record
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return nil, err
	}
	if values == nil {
		return nil, fmt.Errorf("body is not an object")
	}
	return []record.Record{values}, nil
}

func (r *Reader) Read(ctx context.Context) (source.Unit, error) {
	select {
	case values := <-r.units:
		return source.DataUnit(values), nil
	case <-r.done:
		return source.Unit{}, io.EOF
	case <-ctx.Done():
		return source.Unit{}, ctx.Err()
	}
}

// Close ends the stream. Pending and future requests are rejected as unavailable.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

// Done is closed once the stream has ended.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}
