// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package mapper implements template based record generators. Every output field of a
// destination is described by a go template rendered against the source record, with a small
// set of helper functions for strings, lists, objects, hashing and identifiers.
package mapper
