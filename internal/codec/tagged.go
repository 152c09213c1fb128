package codec

import (
	"fmt"

	"github.com/okian/ctfscores/internal/domain/model"
)

// Kind discriminates the entity held by a tagged container.
type Kind uint8

// Known kinds. The zero Kind is never a valid tag.
const (
	KindChallenge Kind = iota + 1
	KindEvent
	KindScores
)

// Kinds lists every known kind in tag lookup order.
func Kinds() []Kind {
	return []Kind{KindChallenge, KindEvent, KindScores}
}

// String returns the type name carried in the tag.
func (k Kind) String() string {
	switch k {
	case KindChallenge:
		return "Challenge"
	case KindEvent:
		return "Event"
	case KindScores:
		return "Scores"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Tag returns the container key for the kind, e.g. "__Event__".
func (k Kind) Tag() string {
	return "__" + k.String() + "__"
}

// label is the lowercase name used in metrics.
func (k Kind) label() string {
	switch k {
	case KindChallenge:
		return "challenge"
	case KindEvent:
		return "event"
	case KindScores:
		return "scores"
	default:
		return "other"
	}
}

// Container is a tagged container: a single key naming the type, mapped to
// the type's fields.
type Container map[string]any

// Envelope is a recognized tagged container, split into kind and fields.
type Envelope struct {
	Kind Kind
	Body map[string]any
}

// ParseEnvelope looks for a known tag in m. It returns ok=false when m
// carries no tag, and an error when it carries more than one or when the
// tagged value is not a mapping.
func ParseEnvelope(m map[string]any) (Envelope, bool, error) {
	var (
		env   Envelope
		found bool
	)
	for _, k := range Kinds() {
		raw, ok := m[k.Tag()]
		if !ok {
			continue
		}
		if found {
			return Envelope{}, false, wrapKind("parse envelope", ErrMalformedField,
				fmt.Errorf("both %s and %s tags present", env.Kind.Tag(), k.Tag()))
		}
		body, ok := asMap(raw)
		if !ok {
			return Envelope{}, false, wrapKind("parse envelope", ErrMalformedField,
				fmt.Errorf("%s holds %T, want a mapping", k.Tag(), raw))
		}
		env, found = Envelope{Kind: k, Body: body}, true
	}
	return env, found, nil
}

// Entity is the decoded form of an envelope. Exactly one pointer is set,
// the one named by Kind.
type Entity struct {
	Kind      Kind
	Challenge *model.Challenge
	Event     *model.Event
	Scores    *model.Scores
}

// Value returns the populated pointer.
func (e Entity) Value() any {
	switch e.Kind {
	case KindChallenge:
		return e.Challenge
	case KindEvent:
		return e.Event
	case KindScores:
		return e.Scores
	default:
		return nil
	}
}

// DecodeEntity builds the entity described by env.
func DecodeEntity(env Envelope) (Entity, error) {
	switch env.Kind {
	case KindChallenge:
		c, err := decodeChallengeBody(env.Body)
		if err != nil {
			return Entity{}, err
		}
		return Entity{Kind: KindChallenge, Challenge: c}, nil
	case KindEvent:
		e, err := decodeEventBody(env.Body)
		if err != nil {
			return Entity{}, err
		}
		return Entity{Kind: KindEvent, Event: e}, nil
	case KindScores:
		s, err := decodeScoresBody(env.Body)
		if err != nil {
			return Entity{}, err
		}
		return Entity{Kind: KindScores, Scores: s}, nil
	default:
		return Entity{}, wrapKind("decode entity", ErrUnexpectedKind, fmt.Errorf("%s", env.Kind))
	}
}

// kindOf reports the kind of an entity value, or 0 for anything else.
func kindOf(v any) Kind {
	switch v.(type) {
	case *model.Challenge, model.Challenge:
		return KindChallenge
	case *model.Event, model.Event:
		return KindEvent
	case *model.Scores, model.Scores:
		return KindScores
	default:
		return 0
	}
}
