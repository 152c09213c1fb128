package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound  = errors.New("scores not found")
	ErrEmptyPath = errors.New("empty store path")
	ErrNilScores = errors.New("nil scores")
)
