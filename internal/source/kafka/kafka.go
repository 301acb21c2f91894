// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package kafka implements a source reading JSON records from a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/source"
)

const (
	loggerName = "sluice:source:kafka"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrKafkaSource wraps errors emitted by the Kafka source implementation.
	ErrKafkaSource = errors.New("kafka source")
)

type config struct {
	Brokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic         string   `env:"KAFKA_TOPIC"`
	GroupID       string   `env:"KAFKA_GROUP_ID"`
	FromBeginning bool     `env:"KAFKA_FROM_BEGINNING" envDefault:"true"`
}

func checkConfig(cfg config) error {
	missingEnvs := make([]string, 0)
	if len(cfg.Brokers) == 0 {
		missingEnvs = append(missingEnvs, "KAFKA_BROKERS")
	}
	if cfg.Topic == "" {
		missingEnvs = append(missingEnvs, "KAFKA_TOPIC")
	}

	if len(missingEnvs) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, strings.Join(missingEnvs, ", "))
	}
	return nil
}

// messageReader is the subset of the kafka-go reader used by Reader.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

var _ source.Reader = &Reader{}
var _ source.Committer = &Reader{}

// Reader fetches messages one at a time. When a consumer group is configured the offset of a
// message is committed only once its unit has been received by the pipeline.
type Reader struct {
	reader messageReader
	commit bool

	lock    sync.Mutex
	pending *kafkago.Message
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

	log := logger.Named(ctx, loggerName)
	startOffset := kafkago.LastOffset
	if cfg.FromBeginning {
		startOffset = kafkago.FirstOffset
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			log.Error("reader: "+fmt.Sprintf(msg, args...), "topic", cfg.Topic, "groupId", cfg.GroupID)
		}),
	})

	log.Debug("kafka reader initialized",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"groupId", cfg.GroupID,
	)
	return newReader(reader, cfg.GroupID != ""), nil
}

func newReader(reader messageReader, commit bool) *Reader {
	return &Reader{
		reader: reader,
		commit: commit,
	}
}

func (r *Reader) Read(ctx context.Context) (source.Unit, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return source.Unit{}, ctx.Err()
		}
		return source.Unit{}, handleError(err)
	}

	var values record.Record
	err = json.Unmarshal(msg.Value, &values)
	if err == nil && values == nil {
		err = errors.New("null is not a record")
	}
	if err != nil {
		if commitErr := r.commitMessage(ctx, msg); commitErr != nil {
			err = errors.Join(err, commitErr)
		}
		return source.Unit{}, fmt.Errorf("%w: partition %d offset %d: %w", source.ErrSkippable, msg.Partition, msg.Offset, err)
	}

	r.lock.Lock()
	r.pending = &msg
	r.lock.Unlock()
	return source.DataUnit(values), nil
}

// Commit commits the offset of the message returned by the last Read.
func (r *Reader) Commit(ctx context.Context) error {
	r.lock.Lock()
	pending := r.pending
	r.pending = nil
	r.lock.Unlock()

	if pending == nil {
		return nil
	}
	return r.commitMessage(ctx, *pending)
}

func (r *Reader) commitMessage(ctx context.Context, msg kafkago.Message) error {
	if !r.commit {
		return nil
	}
	if err := r.reader.CommitMessages(ctx, msg); err != nil {
		return handleError(err)
	}
	return nil
}

func (r *Reader) Close() error {
	return handleError(r.reader.Close())
}

// handleError wraps err with ErrKafkaSource. The io.EOF returned by a closed reader stays detectable.
func handleError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrKafkaSource, err)
}
