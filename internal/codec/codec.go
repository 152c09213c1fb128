// Package codec converts scoreboard entities to and from tagged containers
// and writes them in a textual interchange format.
//
// Encoding wraps each entity's fields under a single key naming its type,
// e.g. {"__Challenge__": {"name": "rev1", "points": 0, "teammate": ""}}.
// Decoding parses a document into generic mappings and runs a Hook over
// them bottom-up, the way an object hook runs during a JSON parse. The
// active event of a Scores document is written as its key and resolved
// against the rebuilt events on the way back in.
package codec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/ctfscores/internal/domain/model"
	"github.com/okian/ctfscores/pkg/logger"
	"github.com/okian/ctfscores/pkg/metrics"
)

// Format names a wire format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Codec marshals and unmarshals documents in one format.
type Codec struct {
	format Format
	indent string
	logger logger.Logger
}

// Option applies a configuration option to the Codec.
type Option func(*Codec)

// WithFormat selects the wire format. Unknown formats are ignored.
func WithFormat(f Format) Option {
	return func(c *Codec) {
		if _, err := ParseFormat(string(f)); err == nil {
			c.format = f
		}
	}
}

// WithIndent pretty-prints output using indent for each level. Only JSON
// and YAML honor it.
func WithIndent(indent string) Option {
	return func(c *Codec) {
		c.indent = indent
	}
}

// WithLogger sets the logger failed calls are reported to.
func WithLogger(l logger.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Codec. The default format is compact JSON and failures are
// not logged.
func New(opts ...Option) *Codec {
	c := &Codec{format: FormatJSON, logger: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Format returns the codec's wire format.
func (c *Codec) Format() Format { return c.format }

// Marshal encodes v and writes it in the codec's format.
func (c *Codec) Marshal(v any) ([]byte, error) {
	const op = "encode"
	start := time.Now()

	tree, err := Encode(v)
	if err != nil {
		c.observeError(op, err, start)
		return nil, err
	}
	data, err := c.write(tree)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", op, c.format, err)
		c.observeError(op, err, start)
		return nil, err
	}

	c.observe(op, kindOf(v), len(data), start)
	return data, nil
}

// Unmarshal parses data and runs hook over every mapping, bottom-up. A nil
// hook returns the generic tree.
func (c *Codec) Unmarshal(data []byte, hook Hook) (any, error) {
	const op = "decode"
	start := time.Now()

	tree, err := c.read(data)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", op, c.format, err)
		c.observeError(op, err, start)
		return nil, err
	}
	if hook != nil {
		tree, err = Walk(tree, hook)
		if err != nil {
			c.observeError(op, err, start)
			return nil, err
		}
	}

	c.observe(op, kindOf(tree), len(data), start)
	return tree, nil
}

// UnmarshalChallenge decodes a document holding a single Challenge.
func (c *Codec) UnmarshalChallenge(data []byte) (*model.Challenge, error) {
	v, err := c.Unmarshal(data, DecodeChallenge)
	if err != nil {
		return nil, err
	}
	ch, ok := v.(*model.Challenge)
	if !ok {
		return nil, unexpected(KindChallenge, v)
	}
	return ch, nil
}

// UnmarshalEvent decodes a document holding a single Event.
func (c *Codec) UnmarshalEvent(data []byte) (*model.Event, error) {
	v, err := c.Unmarshal(data, DecodeEvent)
	if err != nil {
		return nil, err
	}
	e, ok := v.(*model.Event)
	if !ok {
		return nil, unexpected(KindEvent, v)
	}
	return e, nil
}

// UnmarshalScores decodes a document holding a Scores.
func (c *Codec) UnmarshalScores(data []byte) (*model.Scores, error) {
	v, err := c.Unmarshal(data, DecodeScores)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*model.Scores)
	if !ok {
		return nil, unexpected(KindScores, v)
	}
	return s, nil
}

// Render returns data as printable text. CBOR is shown in diagnostic
// notation; the textual formats are returned as is.
func (c *Codec) Render(data []byte) (string, error) {
	if c.format == FormatCBOR {
		return diagnoseCBOR(data)
	}
	return string(data), nil
}

func (c *Codec) write(tree any) ([]byte, error) {
	switch c.format {
	case FormatYAML:
		return writeYAML(tree, c.indent)
	case FormatCBOR:
		return writeCBOR(tree)
	default:
		return writeJSON(tree, c.indent)
	}
}

func (c *Codec) read(data []byte) (any, error) {
	switch c.format {
	case FormatYAML:
		return readYAML(data)
	case FormatCBOR:
		return readCBOR(data)
	default:
		return readJSON(data)
	}
}

func (c *Codec) observe(op string, kind Kind, size int, start time.Time) {
	format := string(c.format)
	metrics.RecordCodecOperation(op, kind.label(), format)
	metrics.RecordPayloadBytes(op, format, size)
	metrics.RecordCodecLatency(op, format, float64(time.Since(start).Microseconds())/1000)
}

func (c *Codec) observeError(op string, err error, start time.Time) {
	kind := errorType(err)
	elapsed := time.Since(start)
	metrics.RecordCodecError(op, kind)
	metrics.RecordErrorLatency("codec", kind, float64(elapsed.Microseconds())/1000)
	c.logger.Debug(context.Background(), op+" failed",
		logger.String("format", string(c.format)),
		logger.String("error_type", kind),
		logger.Duration("elapsed", elapsed),
		logger.Error(err),
	)
}

func unexpected(want Kind, got any) error {
	return fmt.Errorf("%w: want %s, document holds %T", ErrUnexpectedKind, want, got)
}
