// Package model contains the scoreboard entities: challenges grouped into
// events, and the scores document that owns the events.
package model

import "fmt"

// Challenge is a single solved (or attempted) task within an event.
type Challenge struct {
	name string

	// Points awarded for the challenge.
	Points int
	// Teammate optionally credits whoever helped; empty when solo.
	Teammate string
}

// NewChallenge creates a challenge with zero points and no teammate.
func NewChallenge(name string) *Challenge {
	return &Challenge{name: name}
}

// Name returns the challenge identifier. It cannot change after creation.
func (c *Challenge) Name() string { return c.name }

// Validate reports whether the challenge satisfies its invariants.
func (c *Challenge) Validate() error {
	if c.name == "" {
		return fmt.Errorf("challenge: %w", ErrEmptyName)
	}
	return nil
}
