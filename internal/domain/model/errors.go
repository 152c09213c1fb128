package model

import "errors"

// Sentinel kinds for model invariants.
var (
	ErrEmptyName    = errors.New("empty name")
	ErrUnknownEvent = errors.New("unknown event")
)
