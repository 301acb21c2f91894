// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package httpsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/mia-platform/sluice/internal/info"
	"github.com/mia-platform/sluice/internal/pipeline"
	"github.com/mia-platform/sluice/internal/record"
)

// BatchIDHeader carries a unique identifier for every delivered batch.
const BatchIDHeader = "X-Sluice-Batch-Id"

var (
	errMultipleAuthMethods  = errors.New("only one between token and client credentials can be set")
	errMissingClientID      = errors.New("client id is required when client secret is set")
	errMissingClientSecret  = errors.New("client secret is required when client id is set")
	errMissingAuthEndpoint  = errors.New("auth endpoint is required with client credentials")
	errUnexpectedStatusCode = errors.New("unexpected error")
)

var _ pipeline.RequestSender = &Sender{}

// Error wraps every failure of the http sink.
type Error struct {
	// StatusCode is set when the endpoint answered with a non 2xx status.
	StatusCode int
	err        error
}

func (e *Error) Error() string {
	return "http sink: " + e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Is(target error) bool {
	he, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.StatusCode == he.StatusCode && e.err.Error() == he.err.Error()
}

type config struct {
	Token        string `env:"SLUICE_HTTP_TOKEN"`
	ClientID     string `env:"SLUICE_HTTP_CLIENT_ID"`
	ClientSecret string `env:"SLUICE_HTTP_CLIENT_SECRET"`
	AuthEndpoint string `env:"SLUICE_HTTP_AUTH_ENDPOINT"`
}

func (c config) validate() error {
	hasClientCredentials := len(c.ClientID) > 0 || len(c.ClientSecret) > 0
	switch {
	case len(c.Token) > 0 && hasClientCredentials:
		return errMultipleAuthMethods
	case len(c.ClientID) > 0 && len(c.ClientSecret) == 0:
		return errMissingClientSecret
	case len(c.ClientSecret) > 0 && len(c.ClientID) == 0:
		return errMissingClientID
	case hasClientCredentials && len(c.AuthEndpoint) == 0:
		return errMissingAuthEndpoint
	}

	if len(c.AuthEndpoint) > 0 {
		if _, err := url.Parse(c.AuthEndpoint); err != nil {
			return err
		}
	}
	return nil
}

// Sender posts batches of records to HTTP endpoints.
type Sender struct {
	client *http.Client
}

// NewSender returns a Sender configured from the environment.
func NewSender(ctx context.Context) (*Sender, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	if err := config.validate(); err != nil {
		return nil, handleError(err)
	}

	return &Sender{
		client: &http.Client{
			Transport: newTransport(ctx, config, nil),
		},
	}, nil
}

// Send implements pipeline.RequestSender.
func (s *Sender) Send(ctx context.Context, batch []record.Record, setup pipeline.HTTPSetup) error {
	if setup.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, setup.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return handleError(err)
	}

	method := http.MethodPost
	if len(setup.Method) > 0 {
		method = strings.ToUpper(setup.Method)
	}

	request, err := http.NewRequestWithContext(ctx, method, setup.URL, bytes.NewReader(body))
	if err != nil {
		return handleError(err)
	}

	for key, value := range setup.Headers {
		request.Header.Set(key, value)
	}
	request.Header.Set("User-Agent", info.UserAgent())
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(BatchIDHeader, uuid.NewString())

	resp, err := s.client.Do(request)
	if err != nil {
		return handleError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, err: responseError(resp.Body)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// responseError extracts the message field of a JSON error body.
func responseError(body io.Reader) error {
	var respBody map[string]any
	if err := json.NewDecoder(body).Decode(&respBody); err == nil {
		if message, ok := respBody["message"].(string); ok {
			return errors.New(message)
		}
	}

	return errUnexpectedStatusCode
}

func handleError(err error) error {
	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	return &Error{
		err: err,
	}
}
