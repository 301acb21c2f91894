// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package destination assembles the sink adapters used by the pipeline.
// Every destination kind is served by its own subpackage; New only initializes the ones
// required by the configured destinations, so that missing credentials of an unused kind
// never prevent a run.
package destination
