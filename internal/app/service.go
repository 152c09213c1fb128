// Package service runs the scoreboard codec operations the CLI exposes:
// the demonstration round-trips, re-encoding a document, and writing
// generated scores.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/ctfscores/internal/adapters/repository"
	"github.com/okian/ctfscores/internal/codec"
	"github.com/okian/ctfscores/internal/domain/model"
	"github.com/okian/ctfscores/internal/sample"
	"github.com/okian/ctfscores/pkg/logger"
)

// ErrNotScores is returned when a store is asked to hold a document that is
// not a Scores.
var ErrNotScores = errors.New("document is not a scores document")

// Service writes scoreboard documents with one output codec.
type Service struct {
	mu sync.Mutex

	codec     *codec.Codec
	input     *codec.Codec
	store     repository.Store
	generator *sample.Generator
	clock     func() time.Time
	logger    logger.Logger

	// Counters reported by Stats.
	runs     map[string]int
	failures int
	written  int
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCodec sets the codec documents are written with.
func WithCodec(c *codec.Codec) Option {
	return func(s *Service) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithInputCodec sets the codec Reencode reads with. It defaults to the
// output codec.
func WithInputCodec(c *codec.Codec) Option {
	return func(s *Service) {
		s.input = c
	}
}

// WithStore sends Generate and Reencode output to a store instead of the
// writer. Only scores documents can be stored.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithClock sets the clock the demonstration dates LamerCTF with.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithGenerator sets the generator used by Generate.
func WithGenerator(g *sample.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// New constructs a Service writing compact JSON to its callers' writers.
func New(opts ...Option) *Service {
	s := &Service{
		codec:  codec.New(),
		clock:  time.Now,
		logger: logger.Nop(),
		runs:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.input == nil {
		s.input = s.codec
	}
	if s.generator == nil {
		s.generator = sample.NewGenerator()
	}
	return s
}

// Demo encodes a Challenge, an Event and a Scores in turn. For each it
// writes the encoded document, decodes it with that kind's hook, and
// writes the decoded value encoded again: six lines in all.
func (s *Service) Demo(ctx context.Context, w io.Writer) (err error) {
	defer s.finish(ctx, "demo", &err)

	rev1 := model.NewChallenge("rev1")
	steps := []struct {
		kind   codec.Kind
		value  any
		decode func([]byte) (any, error)
	}{
		{codec.KindChallenge, rev1, func(b []byte) (any, error) { return s.codec.UnmarshalChallenge(b) }},
		{codec.KindEvent, sample.NoobCTF(), func(b []byte) (any, error) { return s.codec.UnmarshalEvent(b) }},
		{codec.KindScores, sample.Demo(model.DateOf(s.clock())), func(b []byte) (any, error) { return s.codec.UnmarshalScores(b) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.codec.Marshal(step.value)
		if err != nil {
			return fmt.Errorf("demo %s: %w", step.kind, err)
		}
		if err := s.writeLine(w, data); err != nil {
			return err
		}

		decoded, err := step.decode(data)
		if err != nil {
			return fmt.Errorf("demo %s: %w", step.kind, err)
		}
		again, err := s.codec.Marshal(decoded)
		if err != nil {
			return fmt.Errorf("demo %s: %w", step.kind, err)
		}
		if err := s.writeLine(w, again); err != nil {
			return err
		}
		s.logger.Debug(ctx, "round-tripped", logger.String("kind", step.kind.String()), logger.Int("bytes", len(data)))
	}
	return nil
}

// Reencode decodes any tagged document with the input codec and writes it
// with the output codec. Untagged documents are re-encoded as plain data.
func (s *Service) Reencode(ctx context.Context, data []byte, w io.Writer) (err error) {
	defer s.finish(ctx, "reencode", &err)
	if err := ctx.Err(); err != nil {
		return err
	}

	v, err := s.input.Unmarshal(data, codec.DecodeAny)
	if err != nil {
		return fmt.Errorf("reencode: %w", err)
	}
	s.logger.Debug(ctx, "decoded document",
		logger.String("from", string(s.input.Format())),
		logger.String("type", fmt.Sprintf("%T", v)),
	)

	if s.store != nil {
		scores, ok := v.(*model.Scores)
		if !ok {
			return fmt.Errorf("reencode: %w: got %T", ErrNotScores, v)
		}
		return s.save(ctx, scores)
	}

	out, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("reencode: %w", err)
	}
	return s.writeLine(w, out)
}

// Generate builds a random scores graph and writes it, or saves it when the
// service has a store.
func (s *Service) Generate(ctx context.Context, w io.Writer) (err error) {
	defer s.finish(ctx, "generate", &err)

	scores, err := s.generator.Scores(ctx)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	active, _ := scores.ActiveName()
	s.logger.Info(ctx, "generated scores",
		logger.Any("seed", s.generator.Seed()),
		logger.Int("events", len(scores.Events)),
		logger.String("active", active),
	)

	if s.store != nil {
		return s.save(ctx, scores)
	}
	out, err := s.codec.Marshal(scores)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	return s.writeLine(w, out)
}

// Stats returns operation counters for monitoring.
func (s *Service) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make(map[string]int, len(s.runs))
	for k, v := range s.runs {
		runs[k] = v
	}
	return map[string]any{
		"format":       string(s.codec.Format()),
		"runs":         runs,
		"failures":     s.failures,
		"bytesWritten": s.written,
	}
}

func (s *Service) save(ctx context.Context, scores *model.Scores) error {
	if err := s.store.Save(ctx, scores); err != nil {
		return err
	}
	s.logger.Info(ctx, "saved scores", logger.Int("events", len(scores.Events)))
	return nil
}

// writeLine renders data for a terminal and writes it with a trailing
// newline.
func (s *Service) writeLine(w io.Writer, data []byte) error {
	text, err := s.codec.Render(data)
	if err != nil {
		return err
	}
	n, err := io.WriteString(w, text+"\n")

	s.mu.Lock()
	s.written += n
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (s *Service) finish(ctx context.Context, op string, errp *error) {
	s.mu.Lock()
	s.runs[op]++
	if *errp != nil {
		s.failures++
	}
	s.mu.Unlock()

	if *errp != nil {
		s.logger.Error(ctx, op+" failed", logger.Error(*errp))
	}
}
