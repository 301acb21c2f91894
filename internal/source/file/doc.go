// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package file provides source readers decoding CSV and JSON Lines inputs.
package file
