package model

import "fmt"

// Event is a CTF competition on a given day. It owns its challenges.
type Event struct {
	name string

	// Date is the day the event took place.
	Date Date
	// Challenges maps challenge name to challenge.
	Challenges map[string]*Challenge
}

// NewEvent creates an event with no challenges.
func NewEvent(name string, date Date) *Event {
	return &Event{
		name:       name,
		Date:       date,
		Challenges: make(map[string]*Challenge),
	}
}

// Name returns the event identifier.
func (e *Event) Name() string { return e.name }

// AddChallenge stores c under its name, replacing any challenge with the
// same name.
func (e *Event) AddChallenge(c *Challenge) {
	if e.Challenges == nil {
		e.Challenges = make(map[string]*Challenge)
	}
	e.Challenges[c.Name()] = c
}

// Challenge looks up a challenge by name.
func (e *Event) Challenge(name string) (*Challenge, bool) {
	c, ok := e.Challenges[name]
	return c, ok
}

// TotalPoints sums the points of every challenge in the event.
func (e *Event) TotalPoints() int {
	total := 0
	for _, c := range e.Challenges {
		total += c.Points
	}
	return total
}

// Validate checks the event and each of its challenges.
func (e *Event) Validate() error {
	if e.name == "" {
		return fmt.Errorf("event: %w", ErrEmptyName)
	}
	for key, c := range e.Challenges {
		if c == nil {
			return fmt.Errorf("event %q: challenge %q is nil", e.name, key)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("event %q: %w", e.name, err)
		}
	}
	return nil
}
