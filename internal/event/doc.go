// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package event provides the ordered observer registry used to hook into the
// pipeline lifecycle. Handlers run sequentially in registration order and a
// failing handler never stops the emitter or the handlers after it.
package event
