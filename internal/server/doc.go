// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package server contains the HTTP server used by the push based sources of sluice.
// It sets up the HTTP server using the Fiber framework, configures the request logging
// middleware and exposes the health check routes under the /-/ prefix.
package server
