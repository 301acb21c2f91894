// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package pipeline implements the fan-out engine of sluice.
// A Pipeline reads one unit at a time from a source.Stream, expands it for every
// configured Destination, accumulates the results in one buffer per destination and
// flushes fixed size batches to the destination sinks. Lifecycle events are published
// on an event.Hub around every delivery.
package pipeline
