// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSource wraps the source failure seen before the first unit, or the cancellation of a run.
	ErrSource = errors.New("source failure")
	// ErrMissingSink is logged when no adapter is configured for a destination kind.
	ErrMissingSink = errors.New("missing sink adapter")
)

// setupMismatchError signals a destination whose setup does not match its kind.
type setupMismatchError struct {
	Kind  Kind
	Setup Setup
}

func (e *setupMismatchError) Error() string {
	return fmt.Sprintf("setup %T is not valid for %s destinations", e.Setup, e.Kind)
}

func (e *setupMismatchError) Unwrap() error {
	return errors.ErrUnsupported
}
