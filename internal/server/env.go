// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

var (
	ErrEnvVariablesNotValid = errors.New("environment variables not valid")
)

// config holds the listener settings. BodyLimit bounds the size of a single webhook request,
// ShutdownTimeout bounds how long Stop waits for in-flight requests.
type config struct {
	HTTPHost              string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort              int           `env:"HTTP_PORT" envDefault:"3000"`
	DisableStartupMessage bool          `env:"DISABLE_STARTUP_MESSAGE" envDefault:"true"`
	BodyLimit             int           `env:"HTTP_BODY_LIMIT" envDefault:"4194304"`
	ShutdownTimeout       time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func loadServerConfig() (*config, error) {
	envVars, err := env.ParseAs[config]()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	if err := validateEnvironmentVariables(&envVars); err != nil {
		return nil, err
	}
	return &envVars, nil
}

func validateEnvironmentVariables(envVars *config) error {
	envError := make([]string, 0)

	if envVars.HTTPPort < 1 || envVars.HTTPPort > 65535 {
		envError = append(envError, "HTTP_PORT is out of valid range (1-65535)")
	}
	if len(strings.TrimSpace(envVars.HTTPHost)) == 0 {
		envError = append(envError, "HTTP_HOST cannot be empty")
	}
	if envVars.BodyLimit <= 0 {
		envError = append(envError, "HTTP_BODY_LIMIT must be positive")
	}
	if envVars.ShutdownTimeout < 0 {
		envError = append(envError, "HTTP_SHUTDOWN_TIMEOUT cannot be negative")
	}

	if len(envError) > 0 {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, strings.Join(envError, ", "))
	}
	return nil
}
