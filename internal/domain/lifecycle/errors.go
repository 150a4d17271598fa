// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "errors"

var (
	// ErrInvalidTransition means no rule matches the requested (from, to) pair.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrMissingPrecondition means a rule matched but required facts were absent.
	ErrMissingPrecondition = errors.New("missing precondition")
)

// TransitionError carries the engine's reason verbatim so callers can surface
// it to clients unchanged.
type TransitionError struct {
	Entity       string
	From         string
	To           string
	Reason       string
	MissingFacts []string
	kind         error
}

func (e *TransitionError) Error() string { return e.Reason }

func (e *TransitionError) Unwrap() error { return e.kind }
