package model

import (
	"fmt"
	"sort"
)

// Scores is the root document: every event played, plus the one currently
// being played. The active event is held by key, never as a second copy.
type Scores struct {
	// Events maps event name to event.
	Events map[string]*Event

	active    string
	hasActive bool
}

// NewScores creates an empty scores document with no active event.
func NewScores() *Scores {
	return &Scores{Events: make(map[string]*Event)}
}

// NewEvent stores evt under its name and makes it the active event. An
// unnamed event fails Validate.
func (s *Scores) NewEvent(evt *Event) {
	if s.Events == nil {
		s.Events = make(map[string]*Event)
	}
	s.Events[evt.Name()] = evt
	s.active = evt.Name()
	s.hasActive = true
}

// Active returns the active event as stored in Events.
func (s *Scores) Active() (*Event, bool) {
	if !s.hasActive {
		return nil, false
	}
	evt, ok := s.Events[s.active]
	return evt, ok
}

// ActiveName returns the key of the active event.
func (s *Scores) ActiveName() (string, bool) {
	return s.active, s.hasActive
}

// SetActive points the active reference at an existing event. The empty
// key is refused: it is how "no active event" is written.
func (s *Scores) SetActive(name string) error {
	if name == "" {
		return fmt.Errorf("set active: %w", ErrEmptyName)
	}
	if _, ok := s.Events[name]; !ok {
		return fmt.Errorf("set active %q: %w", name, ErrUnknownEvent)
	}
	s.active = name
	s.hasActive = true
	return nil
}

// ClearActive removes the active reference.
func (s *Scores) ClearActive() {
	s.active = ""
	s.hasActive = false
}

// Event looks up an event by key.
func (s *Scores) Event(name string) (*Event, bool) {
	evt, ok := s.Events[name]
	return evt, ok
}

// EventNames returns the event keys in lexical order.
func (s *Scores) EventNames() []string {
	names := make([]string, 0, len(s.Events))
	for name := range s.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every event and that the active key, if any, is present.
func (s *Scores) Validate() error {
	for key, evt := range s.Events {
		if evt == nil {
			return fmt.Errorf("scores: event %q is nil", key)
		}
		if err := evt.Validate(); err != nil {
			return fmt.Errorf("scores: %w", err)
		}
	}
	if s.hasActive {
		if s.active == "" {
			return fmt.Errorf("scores: active: %w", ErrEmptyName)
		}
		if _, ok := s.Events[s.active]; !ok {
			return fmt.Errorf("scores: active %q: %w", s.active, ErrUnknownEvent)
		}
	}
	return nil
}
