// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package pubsub implements a source reading JSON records from a Google Cloud Pub/Sub subscription.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"github.com/caarlos0/env/v11"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/source"
)

const (
	loggerName = "sluice:source:pubsub"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrPubSubSource wraps errors emitted by the Pub/Sub source implementation.
	ErrPubSubSource = errors.New("pubsub source")
)

type config struct {
	ProjectID      string `env:"GOOGLE_CLOUD_PUBSUB_PROJECT"`
	SubscriptionID string `env:"GOOGLE_CLOUD_PUBSUB_SUBSCRIPTION"`
}

// checkConfig validates the required configuration for the Pub/Sub client.
func checkConfig(cfg config) error {
	missingEnvs := make([]string, 0)
	if cfg.ProjectID == "" {
		missingEnvs = append(missingEnvs, "GOOGLE_CLOUD_PUBSUB_PROJECT")
	}
	if cfg.SubscriptionID == "" {
		missingEnvs = append(missingEnvs, "GOOGLE_CLOUD_PUBSUB_SUBSCRIPTION")
	}

	if len(missingEnvs) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, strings.Join(missingEnvs, ", "))
	}
	return nil
}

type message struct {
	values record.Record
	msg    *pubsub.Message
	err    error
}

var _ source.Reader = &Reader{}
var _ source.Committer = &Reader{}

// Reader pulls one message at a time from the subscription. A message is acknowledged only
// once the unit built from it has been received by the pipeline, and no other message is
// pulled in the meantime.
type Reader struct {
	config config
	client *pubsub.Client

	messages chan message
	ctx      context.Context
	cancel   context.CancelFunc

	lock    sync.Mutex
	pending *pubsub.Message

	startOnce  sync.Once
	stopped    chan struct{}
	receiveErr error
}

// NewReader returns a Reader configured from the environment.
func NewReader(ctx context.Context) (*Reader, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}
	if err := checkConfig(cfg); err != nil {
		return nil, handleError(err)
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, handleError(err)
	}
	return newReader(ctx, cfg, client), nil
}

func newReader(ctx context.Context, cfg config, client *pubsub.Client) *Reader {
	ctx, cancel := context.WithCancel(ctx)
	return &Reader{
		config:   cfg,
		client:   client,
		messages: make(chan message),
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
}

func (r *Reader) start() {
	log := logger.Named(r.ctx, loggerName)
	log.Debug("starting pubsub subscriber",
		"projectId", r.config.ProjectID,
		"subscriptionId", r.config.SubscriptionID,
	)

	subscriber := r.client.Subscriber(r.config.SubscriptionID)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1

	go func() {
		defer close(r.stopped)
		r.receiveErr = subscriber.Receive(r.ctx, func(ctx context.Context, msg *pubsub.Message) {
			next, err := decode(msg)
			if err != nil {
				log.Warn("failed to decode Pub/Sub message", "messageId", msg.ID, "error", err)
				msg.Ack()
				next = message{err: fmt.Errorf("%w: message %s: %w", source.ErrSkippable, msg.ID, err)}
			}

			select {
			case r.messages <- next:
			case <-ctx.Done():
				if next.msg != nil {
					msg.Nack()
				}
			}
		})
	}()
}

func decode(msg *pubsub.Message) (message, error) {
	var values record.Record
	if err := json.Unmarshal(msg.Data, &values); err != nil {
		return message{}, err
	}
	if values == nil {
		return message{}, errors.New("null is not a record")
	}
	return message{values: values, msg: msg}, nil
}

// Read blocks until the next message is received. It returns io.EOF once the reader has been closed.
func (r *Reader) Read(ctx context.Context) (source.Unit, error) {
	r.startOnce.Do(r.start)

	select {
	case next := <-r.messages:
		if next.err != nil {
			return source.Unit{}, next.err
		}

		r.lock.Lock()
		r.pending = next.msg
		r.lock.Unlock()
		return source.DataUnit(next.values), nil
	case <-r.stopped:
		if r.receiveErr != nil && r.ctx.Err() == nil {
			return source.Unit{}, handleError(r.receiveErr)
		}
		return source.Unit{}, io.EOF
	case <-ctx.Done():
		return source.Unit{}, ctx.Err()
	}
}

// Commit acknowledges the message returned by the last Read.
func (r *Reader) Commit(_ context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.pending != nil {
		r.pending.Ack()
		r.pending = nil
	}
	return nil
}

// Close stops the subscriber and closes the client. A message read but never committed is
// handed back to Pub/Sub for redelivery.
func (r *Reader) Close() error {
	log := logger.Named(r.ctx, loggerName)
	log.Debug("closing GCP pub/sub client")

	r.lock.Lock()
	if r.pending != nil {
		r.pending.Nack()
		r.pending = nil
	}
	r.lock.Unlock()

	r.cancel()
	r.startOnce.Do(func() { close(r.stopped) })
	<-r.stopped

	if err := r.client.Close(); err != nil {
		return handleError(err)
	}
	log.Trace("closed GCP pub/sub client")
	return nil
}

// handleError simplifies grpc status errors and wraps them with ErrPubSubSource.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	if statusErr, ok := status.FromError(err); ok && statusErr.Code() != codes.Unknown {
		err = errors.New(statusErr.Message())
	}
	return fmt.Errorf("%w: %w", ErrPubSubSource, err)
}
