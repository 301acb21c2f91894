// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	forwardedHostHeaderKey = "x-forwarded-host"
	forwardedForHeaderKey  = "x-forwarded-for"
	// RequestIDHeaderName is read from incoming requests and echoed back on responses.
	RequestIDHeaderName = "x-request-id"

	IncomingRequestMessage  = "incoming request"
	RequestCompletedMessage = "request completed"
)

// httpRequest is the structured form of the request fields.
type httpRequest struct {
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// httpResponse is the structured form of the response fields.
type httpResponse struct {
	StatusCode int `json:"statusCode,omitempty"`
	Bytes      int `json:"bytes"`
}

type host struct {
	Hostname      string `json:"hostname,omitempty"`
	ForwardedHost string `json:"forwardedHost,omitempty"`
	IP            string `json:"ip,omitempty"`
}

func removePort(host string) string {
	return strings.Split(host, ":")[0]
}

// requestID returns the caller supplied request id or a new random one.
func requestID(c *fiber.Ctx) string {
	if id := c.Get(RequestIDHeaderName); id != "" {
		return id
	}

	id, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Errorf("error generating request id: %w", err))
	}
	return id.String()
}

func requestFields(c *fiber.Ctx) []any {
	return []any{
		"http", httpRequest{
			Method:    c.Method(),
			Path:      string(c.Request().URI().RequestURI()),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		},
		"host", host{
			ForwardedHost: c.Get(forwardedHostHeaderKey),
			Hostname:      removePort(string(c.Request().Host())),
			IP:            c.Get(forwardedForHeaderKey),
		},
	}
}

// statusCode reports the status that fiber will send, including the one carried by a handler *fiber.Error.
func statusCode(c *fiber.Ctx, handlerErr error) int {
	if fiberErr, ok := handlerErr.(*fiber.Error); ok {
		return fiberErr.Code
	}
	return c.Response().StatusCode()
}

// RequestMiddlewareLogger is a fiber middleware to log all requests.
// It logs the incoming request at TRACE and the completed request at INFO with its latency.
// Requests whose path starts with one of excludedPrefix are not logged.
func RequestMiddlewareLogger(logger Logger, excludedPrefix []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := string(c.Request().URI().RequestURI())
		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		id := requestID(c)
		c.Set(RequestIDHeaderName, id)

		requestLogger := logger.WithName("sluice:request").With("requestId", id)
		c.SetUserContext(WithContext(c.UserContext(), requestLogger))

		requestLogger.Trace(IncomingRequestMessage, requestFields(c)...)
		err := c.Next()

		fields := append(requestFields(c),
			"response", httpResponse{
				StatusCode: statusCode(c, err),
				Bytes:      len(c.Response().Body()),
			},
			"responseTime", float64(time.Since(start).Milliseconds()),
		)
		requestLogger.Info(RequestCompletedMessage, fields...)

		return err
	}
}
