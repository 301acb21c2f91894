// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package writer implements the console sink: every batch is summarized on the given
// io.Writer with its size and a preview of its first rows.
// It is primarily useful for debugging purposes, or for tweaking and adjusting
// the record generators before writing to a real destination.
package writer
