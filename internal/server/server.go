// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/sluice/internal/info"
	"github.com/mia-platform/sluice/internal/logger"
)

const (
	loggerName = "sluice:server"
)

// Handler processes the body of a request. Errors wrapping ErrBadRequest are reported to the
// client as 400, errors wrapping ErrUnavailable as 503 and every other error as 500.
type Handler func(ctx context.Context, headers http.Header, body []byte) error

type Server interface {
	AddRoute(method string, path string, handler Handler)
	Start() error
	Stop() error
	StartAsync(ctx context.Context)
}

var (
	ErrServerListen   = errors.New("server listen error")
	ErrServerShutdown = errors.New("server shutdown error")
	ErrBadRequest     = errors.New("bad request")
	ErrUnavailable    = errors.New("service unavailable")
)

var _ Server = &impServer{}

type impServer struct {
	config

	app *fiber.App
}

// NewServer returns a Server configured from the environment. Requests are logged with the
// logger found in ctx.
func NewServer(ctx context.Context) (*impServer, error) {
	cfg, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.DisableStartupMessage,
		BodyLimit:             cfg.BodyLimit,
		Immutable:             true,
	})
	app.Use(logger.RequestMiddlewareLogger(logger.FromContext(ctx), []string{"/-/"}))

	statusRoutes(app, info.AppName, info.Version)

	return &impServer{
		app:    app,
		config: *cfg,
	}, nil
}

func statusRoutes(app *fiber.App, name, version string) {
	status := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":    name,
			"version": version,
			"status":  "OK",
		})
	}

	app.Get("/-/healthz", status)
	app.Get("/-/ready", status)
}

func (s *impServer) AddRoute(method string, path string, handler Handler) {
	s.app.Add(method, path, func(c *fiber.Ctx) error {
		err := handler(c.UserContext(), http.Header(c.GetReqHeaders()), c.Body())
		if err == nil {
			return c.SendStatus(http.StatusNoContent)
		}

		statusCode := http.StatusInternalServerError
		message := "error processing request"
		switch {
		case errors.Is(err, ErrBadRequest):
			statusCode = http.StatusBadRequest
			message = err.Error()
		case errors.Is(err, ErrUnavailable):
			statusCode = http.StatusServiceUnavailable
			message = err.Error()
		}

		logger.FromContext(c.UserContext()).WithName(loggerName).Debug("request failed", "error", err)
		return c.Status(statusCode).JSON(fiber.Map{
			"statusCode": statusCode,
			"error":      http.StatusText(statusCode),
			"message":    message,
		})
	})
}

func (s *impServer) Start() error {
	if err := s.app.Listen(fmt.Sprintf("%s:%d", s.HTTPHost, s.HTTPPort)); err != nil {
		return fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return nil
}

// Stop waits up to the configured shutdown timeout for in-flight requests; zero waits forever.
func (s *impServer) Stop() error {
	if err := s.app.ShutdownWithTimeout(s.ShutdownTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrServerShutdown, err)
	}
	return nil
}

func (s *impServer) StartAsync(ctx context.Context) {
	log := logger.Named(ctx, loggerName)
	go func() {
		if err := s.Start(); err != nil {
			log.Error(err.Error())
		}
	}()
}
