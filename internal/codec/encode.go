package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/ctfscores/internal/domain/model"
)

// Wire bodies. Field order is the order written to the wire; CBOR falls
// back to the json tags.
type (
	challengeBody struct {
		Name     string `json:"name" yaml:"name"`
		Points   int    `json:"points" yaml:"points"`
		Teammate string `json:"teammate" yaml:"teammate"`
	}

	eventBody struct {
		Name       string               `json:"name" yaml:"name"`
		Date       string               `json:"date" yaml:"date"`
		Challenges map[string]Container `json:"challenges" yaml:"challenges"`
	}

	scoresBody struct {
		Active string               `json:"active" yaml:"active"`
		Events map[string]Container `json:"events" yaml:"events"`
	}
)

// EncodeChallenge returns the tagged container for c.
func EncodeChallenge(c *model.Challenge) (Container, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("encode challenge: %w", err)
	}
	return Container{KindChallenge.Tag(): challengeBody{
		Name:     c.Name(),
		Points:   c.Points,
		Teammate: c.Teammate,
	}}, nil
}

// EncodeEvent returns the tagged container for e, with every challenge
// encoded in place.
func EncodeEvent(e *model.Event) (Container, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	challenges := make(map[string]Container, len(e.Challenges))
	for key, c := range e.Challenges {
		enc, err := EncodeChallenge(c)
		if err != nil {
			return nil, fmt.Errorf("encode event %q: %w", e.Name(), err)
		}
		challenges[key] = enc
	}
	return Container{KindEvent.Tag(): eventBody{
		Name:       e.Name(),
		Date:       e.Date.String(),
		Challenges: challenges,
	}}, nil
}

// EncodeScores returns the tagged container for s. The active event is
// written as its key, or "" when there is none.
func EncodeScores(s *model.Scores) (Container, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("encode scores: %w", err)
	}
	events := make(map[string]Container, len(s.Events))
	for key, evt := range s.Events {
		enc, err := EncodeEvent(evt)
		if err != nil {
			return nil, fmt.Errorf("encode scores: %w", err)
		}
		events[key] = enc
	}
	active, _ := s.ActiveName()
	return Container{KindScores.Tag(): scoresBody{
		Active: active,
		Events: events,
	}}, nil
}

// Default encodes the values a wire format does not know natively:
// the three entities and calendar/time values. Anything else fails with
// ErrUnsupportedType.
func Default(v any) (any, error) {
	switch x := v.(type) {
	case *model.Challenge:
		if x == nil {
			break
		}
		return EncodeChallenge(x)
	case model.Challenge:
		return EncodeChallenge(&x)
	case *model.Event:
		if x == nil {
			break
		}
		return EncodeEvent(x)
	case model.Event:
		return EncodeEvent(&x)
	case *model.Scores:
		if x == nil {
			break
		}
		return EncodeScores(x)
	case model.Scores:
		return EncodeScores(&x)
	case model.Date:
		return x.String(), nil
	case *model.Date:
		if x == nil {
			break
		}
		return x.String(), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case *time.Time:
		if x == nil {
			break
		}
		return x.Format(time.RFC3339Nano), nil
	}
	return nil, fmt.Errorf("encode: %w: %T", ErrUnsupportedType, v)
}

// Encode converts v into a tree of values every wire format can write.
// Native values and containers pass through, mappings and lists are
// walked, and every other value goes through Default.
func Encode(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			enc, err := Encode(item)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case Container:
		// Containers only come out of the Encode* functions, already encoded.
		return x, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			enc, err := Encode(item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		return Default(v)
	}
}
