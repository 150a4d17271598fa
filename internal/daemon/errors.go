// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import "errors"

var (
	// ErrUnknownBackend is returned for a store or queue backend the daemon
	// cannot open.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrAlreadyStarted is returned when Run is called twice.
	ErrAlreadyStarted = errors.New("app already started")
)
