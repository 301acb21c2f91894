// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package source defines the signal contract every pipeline input must honour.
// A Stream publishes data, row, header, end and error signals on a Subscription
// and supports explicit pause/resume flow control. Emitter turns any pull based
// Reader into a Stream that never reads ahead of the consumer demand.
package source
