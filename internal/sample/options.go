package sample

import "github.com/okian/ctfscores/internal/domain/model"

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed makes the generator reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithEvents sets how many events a generated Scores holds.
func WithEvents(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.events = n
		}
	}
}

// WithChallenges sets the maximum number of challenges per event. Each
// event gets between zero and n challenges.
func WithChallenges(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.challenges = n
		}
	}
}

// WithTeammates sets the pool teammate labels are drawn from.
func WithTeammates(names []string) Option {
	return func(g *Generator) {
		if len(names) > 0 {
			g.teammates = append([]string(nil), names...)
		}
	}
}

// WithStartDate sets the date of the first generated event.
func WithStartDate(d model.Date) Option {
	return func(g *Generator) {
		if !d.IsZero() {
			g.start = d
		}
	}
}
