// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package httpsink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/mia-platform/sluice/internal/info"
	"github.com/mia-platform/sluice/internal/pipeline"
	"github.com/mia-platform/sluice/internal/record"
)

func TestInitialization(t *testing.T) {
	t.Run("without envs", func(t *testing.T) {
		sender, err := NewSender(t.Context())
		require.NoError(t, err)
		assert.Equal(t, http.DefaultTransport, sender.client.Transport)
	})

	t.Run("with static token", func(t *testing.T) {
		t.Setenv("SLUICE_HTTP_TOKEN", "test-token")
		sender, err := NewSender(t.Context())
		require.NoError(t, err)
		transport, ok := sender.client.Transport.(*oauth2.Transport)
		require.True(t, ok)
		token, err := transport.Source.Token()
		require.NoError(t, err)
		assert.Equal(t, "test-token", token.AccessToken)
	})

	t.Run("with client credentials", func(t *testing.T) {
		t.Setenv("SLUICE_HTTP_CLIENT_ID", "client-id")
		t.Setenv("SLUICE_HTTP_CLIENT_SECRET", "client-secret")
		t.Setenv("SLUICE_HTTP_AUTH_ENDPOINT", "http://localhost:8081/oauth/token")
		sender, err := NewSender(t.Context())
		require.NoError(t, err)
		assert.IsType(t, &oauth2.Transport{}, sender.client.Transport)
	})

	t.Run("with both token and client credentials", func(t *testing.T) {
		t.Setenv("SLUICE_HTTP_TOKEN", "test-token")
		t.Setenv("SLUICE_HTTP_CLIENT_ID", "client-id")
		sender, err := NewSender(t.Context())
		assert.ErrorIs(t, err, errMultipleAuthMethods)
		assert.Nil(t, sender)
	})

	t.Run("missing secret with client id", func(t *testing.T) {
		t.Setenv("SLUICE_HTTP_CLIENT_ID", "client-id")
		sender, err := NewSender(t.Context())
		assert.ErrorIs(t, err, errMissingClientSecret)
		assert.Nil(t, sender)
	})

	t.Run("missing client id with secret", func(t *testing.T) {
		t.Setenv("SLUICE_HTTP_CLIENT_SECRET", "client-secret")
		sender, err := NewSender(t.Context())
		assert.ErrorIs(t, err, errMissingClientID)
		assert.Nil(t, sender)
	})

	t.Run("missing auth endpoint", func(t *testing.T) {
		t.Setenv("SLUICE_HTTP_CLIENT_ID", "client-id")
		t.Setenv("SLUICE_HTTP_CLIENT_SECRET", "client-secret")
		sender, err := NewSender(t.Context())
		assert.ErrorIs(t, err, errMissingAuthEndpoint)
		assert.Nil(t, sender)
	})

	t.Run("invalid auth endpoint", func(t *testing.T) {
		t.Setenv("SLUICE_HTTP_CLIENT_ID", "client-id")
		t.Setenv("SLUICE_HTTP_CLIENT_SECRET", "client-secret")
		t.Setenv("SLUICE_HTTP_AUTH_ENDPOINT", "http://%41:8080/") // invalid URL
		sender, err := NewSender(t.Context())
		assert.ErrorIs(t, err, url.EscapeError("%41"))
		assert.Nil(t, sender)
	})
}

func TestSend(t *testing.T) {
	t.Parallel()

	batch := []record.Record{
		{"id": "1", "value": 10},
		{"id": "2", "value": 20},
	}

	testCases := map[string]struct {
		endpoint       string
		method         string
		expectedMethod string
		expectedError  error
	}{
		"successful post": {
			endpoint:       "/valid-endpoint",
			expectedMethod: http.MethodPost,
		},
		"custom method": {
			endpoint:       "/valid-endpoint",
			method:         "put",
			expectedMethod: http.MethodPut,
		},
		"error with message": {
			endpoint:       "/invalid-endpoint",
			expectedMethod: http.MethodPost,
			expectedError:  &Error{StatusCode: http.StatusInternalServerError, err: errors.New("error message")},
		},
		"unauthorized": {
			endpoint:       "/unauthorized-endpoint",
			expectedMethod: http.MethodPost,
			expectedError:  &Error{StatusCode: http.StatusUnauthorized, err: errUnexpectedStatusCode},
		},
		"not found": {
			endpoint:       "/not-found-endpoint",
			expectedMethod: http.MethodPost,
			expectedError:  &Error{StatusCode: http.StatusNotFound, err: errUnexpectedStatusCode},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Body != nil {
					defer r.Body.Close()
				}

				if r.Method != tc.expectedMethod {
					http.Error(w, "invalid method", http.StatusMethodNotAllowed)
					return
				}

				// check headers
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
				assert.Equal(t, info.UserAgent(), r.Header.Get("User-Agent"))
				assert.Equal(t, "custom", r.Header.Get("X-Custom"))
				_, err := uuid.Parse(r.Header.Get(BatchIDHeader))
				assert.NoError(t, err)

				switch r.RequestURI {
				case "/valid-endpoint":
					decodedBody := make([]map[string]any, 0)
					err := json.NewDecoder(r.Body).Decode(&decodedBody)
					assert.NoError(t, err)
					assert.Equal(t, []map[string]any{
						{"id": "1", "value": float64(10)},
						{"id": "2", "value": float64(20)},
					}, decodedBody)
					w.WriteHeader(http.StatusNoContent)
				case "/not-found-endpoint":
					http.NotFound(w, r)
				case "/unauthorized-endpoint":
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				default:
					errCode := http.StatusInternalServerError
					w.WriteHeader(errCode)

					encoder := json.NewEncoder(w)
					err := encoder.Encode(map[string]any{
						"statusCode": errCode,
						"error":      http.StatusText(errCode),
						"message":    "error message",
					})
					assert.NoError(t, err)
				}
			}))
			defer testServer.Close()

			ctx, cancel := context.WithTimeout(t.Context(), 1*time.Second)
			defer cancel()

			sender := &Sender{
				client: &http.Client{
					Transport: newTransport(ctx, config{Token: "test-token"}, testServer.Client().Transport),
				},
			}
			err := sender.Send(ctx, batch, pipeline.HTTPSetup{
				URL:     testServer.URL + tc.endpoint,
				Method:  tc.method,
				Headers: map[string]string{"X-Custom": "custom"},
			})
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSendTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer testServer.Close()
	defer close(release)

	sender := &Sender{client: testServer.Client()}
	err := sender.Send(t.Context(), []record.Record{{}}, pipeline.HTTPSetup{
		URL:     testServer.URL,
		Timeout: 20 * time.Millisecond,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var sinkErr *Error
	require.ErrorAs(t, err, &sinkErr)
	assert.Zero(t, sinkErr.StatusCode)
}

func TestContextCancelled(t *testing.T) {
	t.Parallel()

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}))
	defer testServer.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	sender := &Sender{client: testServer.Client()}
	err := sender.Send(ctx, []record.Record{}, pipeline.HTTPSetup{URL: testServer.URL})
	require.ErrorIs(t, err, context.Canceled)

	var sinkErr *Error
	assert.False(t, errors.As(err, &sinkErr))
}

func TestClientCredentialFlow(t *testing.T) {
	t.Parallel()

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			defer r.Body.Close()
		}
		if r.Method == http.MethodPost && r.RequestURI == "/oauth/token" {
			err := r.ParseForm()
			assert.NoError(t, err)
			assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
			assert.Equal(t, "Basic dGVzdC1jbGllbnQtaWQ6dGVzdC1jbGllbnQtc2VjcmV0", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			encoder := json.NewEncoder(w)
			err = encoder.Encode(map[string]any{
				"access_token": "generated-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
			assert.NoError(t, err)
			return
		}

		if r.Method == http.MethodPost && r.RequestURI == "/" {
			assert.Equal(t, "Bearer generated-token", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		http.Error(w, "unexpected request", http.StatusBadRequest)
	}))
	defer testServer.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 1*time.Second)
	defer cancel()

	sender := &Sender{
		client: &http.Client{
			Transport: newTransport(ctx, config{
				ClientID:     "test-client-id",
				ClientSecret: "test-client-secret",
				AuthEndpoint: testServer.URL + "/oauth/token",
			}, nil),
		},
	}

	err := sender.Send(ctx, []record.Record{{"id": 1}}, pipeline.HTTPSetup{URL: testServer.URL + "/"})
	assert.NoError(t, err)
}
