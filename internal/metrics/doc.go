// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package metrics publishes OpenTelemetry instruments describing the batches delivered by a
// pipeline. The instruments are fed by the pipeline lifecycle events, so the pipeline itself
// never depends on this package.
package metrics
