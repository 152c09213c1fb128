package sample

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ctfscores/internal/domain/model"
	"github.com/okian/ctfscores/pkg/metrics"
)

// Default generator configuration constants.
const (
	defaultEvents     = 3
	defaultChallenges = 5
	maxPoints         = 500
	daysBetween       = 14
	// one in soloOdds challenges is solved without a teammate
	soloOdds = 3
)

var categories = []string{"rev", "pwn", "web", "crypto", "forensics", "misc"}

// Generator builds random but well-formed Scores graphs. Names are minted
// as UUIDs drawn from the seeded source, so a seed reproduces a graph.
type Generator struct {
	seed       int64
	events     int
	challenges int
	teammates  []string
	start      model.Date
}

// NewGenerator creates a generator with configuration options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		seed:       time.Now().UnixNano(),
		events:     defaultEvents,
		challenges: defaultChallenges,
		teammates:  []string{"grmmpff", "n0p", "r00tkit", "xor_eax"},
		start:      model.NewDate(2021, time.January, 10),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Seed returns the seed the generator was configured with.
func (g *Generator) Seed() int64 { return g.seed }

// Scores builds a new graph. The last event generated is active.
func (g *Generator) Scores(ctx context.Context) (*model.Scores, error) {
	rng := rand.New(rand.NewSource(g.seed)) //nolint:gosec // reproducible fixtures, not secrets

	s := model.NewScores()
	date := g.start.Time()

	for i := 0; i < g.events; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate scores: %w", err)
		}
		name, err := g.name(rng, "ctf")
		if err != nil {
			return nil, err
		}
		evt := model.NewEvent(name, model.DateOf(date))
		if err := g.fill(rng, evt); err != nil {
			return nil, err
		}
		s.NewEvent(evt)
		date = date.AddDate(0, 0, daysBetween)
	}

	// Name collisions replace earlier entries; count what survived.
	challenges := 0
	for _, evt := range s.Events {
		challenges += len(evt.Challenges)
	}
	metrics.RecordEntitiesGenerated("event", len(s.Events))
	metrics.RecordEntitiesGenerated("challenge", challenges)
	return s, nil
}

// fill adds between zero and g.challenges challenges to evt.
func (g *Generator) fill(rng *rand.Rand, evt *model.Event) error {
	n := rng.Intn(g.challenges + 1)
	for j := 0; j < n; j++ {
		category := categories[rng.Intn(len(categories))]
		name, err := g.name(rng, category)
		if err != nil {
			return err
		}
		c := model.NewChallenge(name)
		c.Points = rng.Intn(maxPoints + 1)
		if rng.Intn(soloOdds) != 0 {
			c.Teammate = g.teammates[rng.Intn(len(g.teammates))]
		}
		evt.AddChallenge(c)
	}
	return nil
}

// name mints "<prefix>-<first uuid group>".
func (g *Generator) name(rng *rand.Rand, prefix string) (string, error) {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return "", fmt.Errorf("mint %s name: %w", prefix, err)
	}
	return prefix + "-" + id.String()[:8], nil
}
