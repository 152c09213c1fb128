package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/okian/ctfscores/internal/domain/model"
	"github.com/okian/ctfscores/pkg/metrics"
)

// Hook turns a parsed mapping into a value. A hook that does not recognize
// the mapping returns it unchanged.
type Hook func(m map[string]any) (any, error)

// DecodeChallenge builds a Challenge from a mapping tagged "__Challenge__"
// and passes any other mapping through.
func DecodeChallenge(m map[string]any) (any, error) {
	return decodeKind(m, KindChallenge)
}

// DecodeEvent builds an Event from a mapping tagged "__Event__" and passes
// any other mapping through.
func DecodeEvent(m map[string]any) (any, error) {
	return decodeKind(m, KindEvent)
}

// DecodeScores builds a Scores from a mapping tagged "__Scores__" and
// passes any other mapping through.
func DecodeScores(m map[string]any) (any, error) {
	return decodeKind(m, KindScores)
}

// DecodeAny builds whichever entity m is tagged as.
func DecodeAny(m map[string]any) (any, error) {
	env, ok, err := ParseEnvelope(m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return m, nil
	}
	entity, err := DecodeEntity(env)
	if err != nil {
		return nil, err
	}
	return entity.Value(), nil
}

func decodeKind(m map[string]any, kind Kind) (any, error) {
	raw, ok := m[kind.Tag()]
	if !ok {
		return m, nil
	}
	body, ok := asMap(raw)
	if !ok {
		return nil, wrapKind("decode "+kind.label(), ErrMalformedField,
			fmt.Errorf("%s holds %T, want a mapping", kind.Tag(), raw))
	}
	entity, err := DecodeEntity(Envelope{Kind: kind, Body: body})
	if err != nil {
		return nil, err
	}
	return entity.Value(), nil
}

// Walk applies hook bottom-up to every mapping in tree: children are
// rewritten before their parent is handed to the hook.
func Walk(tree any, hook Hook) (any, error) {
	switch x := tree.(type) {
	case map[string]any:
		for k, v := range x {
			nv, err := Walk(v, hook)
			if err != nil {
				return nil, err
			}
			x[k] = nv
		}
		return hook(x)
	case []any:
		for i, v := range x {
			nv, err := Walk(v, hook)
			if err != nil {
				return nil, err
			}
			x[i] = nv
		}
		return x, nil
	default:
		return tree, nil
	}
}

func decodeChallengeBody(body map[string]any) (*model.Challenge, error) {
	const op = "decode challenge"
	name, err := stringField(body, "name")
	if err != nil {
		return nil, wrapKind(op, ErrMalformedField, err)
	}
	points, err := intField(body, "points")
	if err != nil {
		return nil, wrapKind(op, ErrMalformedField, err)
	}
	teammate, err := stringField(body, "teammate")
	if err != nil {
		return nil, wrapKind(op, ErrMalformedField, err)
	}

	c := model.NewChallenge(name)
	c.Points = points
	c.Teammate = teammate
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordEntityDecoded(KindChallenge.label())
	return c, nil
}

func decodeEventBody(body map[string]any) (*model.Event, error) {
	const op = "decode event"
	name, err := stringField(body, "name")
	if err != nil {
		return nil, wrapKind(op, ErrMalformedField, err)
	}
	date, err := dateField(body, "date")
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", op, name, err)
	}
	challenges, err := mapField(body, "challenges")
	if err != nil {
		return nil, wrapKind(op, ErrMalformedField, err)
	}

	e := model.NewEvent(name, date)
	for key, v := range challenges {
		c, err := challengeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s %q: challenge %q: %w", op, name, key, err)
		}
		e.Challenges[key] = c
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordEntityDecoded(KindEvent.label())
	return e, nil
}

func decodeScoresBody(body map[string]any) (*model.Scores, error) {
	const op = "decode scores"
	events, err := mapField(body, "events")
	if err != nil {
		return nil, wrapKind(op, ErrMalformedField, err)
	}
	active, err := stringField(body, "active")
	if err != nil {
		return nil, wrapKind(op, ErrMalformedField, err)
	}

	s := model.NewScores()
	for key, v := range events {
		evt, err := eventValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: event %q: %w", op, key, err)
		}
		s.Events[key] = evt
	}
	if active != "" {
		if err := s.SetActive(active); err != nil {
			return nil, wrapKind(op, ErrActiveNotFound, fmt.Errorf("%q", active))
		}
	}
	metrics.RecordEntityDecoded(KindScores.label())
	return s, nil
}

// challengeValue decodes a nested challenge. A value an earlier hook
// already decoded is taken as is.
func challengeValue(v any) (*model.Challenge, error) {
	switch x := v.(type) {
	case *model.Challenge:
		return x, nil
	case map[string]any:
		out, err := DecodeChallenge(x)
		if err != nil {
			return nil, err
		}
		if c, ok := out.(*model.Challenge); ok {
			return c, nil
		}
		return nil, fmt.Errorf("%w: mapping is not tagged %s", ErrUnexpectedKind, KindChallenge.Tag())
	default:
		return nil, fmt.Errorf("%w: %T is not a challenge", ErrUnexpectedKind, v)
	}
}

// eventValue decodes a nested event. A value an earlier hook already
// decoded is taken as is.
func eventValue(v any) (*model.Event, error) {
	switch x := v.(type) {
	case *model.Event:
		return x, nil
	case map[string]any:
		out, err := DecodeEvent(x)
		if err != nil {
			return nil, err
		}
		if e, ok := out.(*model.Event); ok {
			return e, nil
		}
		return nil, fmt.Errorf("%w: mapping is not tagged %s", ErrUnexpectedKind, KindEvent.Tag())
	default:
		return nil, fmt.Errorf("%w: %T is not an event", ErrUnexpectedKind, v)
	}
}

func field(body map[string]any, key string) (any, error) {
	v, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	return v, nil
}

func stringField(body map[string]any, key string) (string, error) {
	v, err := field(body, key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q holds %T, want a string", key, v)
	}
	return s, nil
}

func mapField(body map[string]any, key string) (map[string]any, error) {
	v, err := field(body, key)
	if err != nil {
		return nil, err
	}
	m, ok := asMap(v)
	if !ok {
		return nil, fmt.Errorf("%q holds %T, want a mapping", key, v)
	}
	return m, nil
}

func dateField(body map[string]any, key string) (model.Date, error) {
	v, err := field(body, key)
	if err != nil {
		return model.Date{}, wrapKind("date", ErrMalformedField, err)
	}
	switch x := v.(type) {
	case string:
		d, err := model.ParseDate(x)
		if err != nil {
			return model.Date{}, wrapKind("date", ErrMalformedDate, err)
		}
		return d, nil
	case time.Time:
		return model.DateOf(x), nil
	default:
		return model.Date{}, wrapKind("date", ErrMalformedDate, fmt.Errorf("%q holds %T", key, v))
	}
}

// intField accepts every integer shape the parsers produce: json.Number
// from JSON, int from YAML, int64/uint64 from CBOR.
func intField(body map[string]any, key string) (int, error) {
	v, err := field(body, key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%q: %w", key, err)
		}
		return intOf(key, n)
	case int:
		return x, nil
	case int64:
		return intOf(key, x)
	case uint64:
		if x > math.MaxInt {
			return 0, fmt.Errorf("%q: %d overflows int", key, x)
		}
		return int(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%q: %v is not an integer", key, x)
		}
		// 2^63 is the first float64 past MaxInt64.
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, fmt.Errorf("%q: %v overflows int", key, x)
		}
		return intOf(key, int64(x))
	default:
		return 0, fmt.Errorf("%q holds %T, want an integer", key, v)
	}
}

// intOf narrows n to int, failing where int is 32 bits wide.
func intOf(key string, n int64) (int, error) {
	if n < math.MinInt || n > math.MaxInt {
		return 0, fmt.Errorf("%q: %d overflows int", key, n)
	}
	return int(n), nil
}

// asMap accepts the mapping types the parsers and encoders produce.
func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case Container:
		return x, true
	default:
		return nil, false
	}
}
