// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package logger wraps hclog behind the Logger interface used across sluice.
// Loggers travel inside a context.Context so every pipeline component can
// derive a named child without explicit plumbing.
package logger
