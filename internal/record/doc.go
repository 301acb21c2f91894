// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package record defines the opaque unit of data flowing through a pipeline
// and the per-destination transform that expands one record into many.
package record
