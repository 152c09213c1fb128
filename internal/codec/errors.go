package codec

import (
	"errors"
	"fmt"

	"github.com/okian/ctfscores/internal/domain/model"
)

// Sentinel kinds for codec errors. Callers match them with errors.Is.
var (
	ErrUnsupportedType = errors.New("unsupported type")
	ErrMalformedDate   = errors.New("malformed date")
	ErrActiveNotFound  = errors.New("active event not found")
	ErrMalformedField  = errors.New("malformed field")
	ErrUnexpectedKind  = errors.New("unexpected kind")
	ErrUnknownFormat   = errors.New("unknown format")
)

// wrapKind annotates err with the operation and a sentinel kind.
func wrapKind(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// errorType maps an error to the label used for metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrMalformedDate):
		return "malformed_date"
	case errors.Is(err, ErrActiveNotFound):
		return "active_not_found"
	case errors.Is(err, ErrMalformedField):
		return "malformed_field"
	case errors.Is(err, ErrUnexpectedKind):
		return "unexpected_kind"
	case errors.Is(err, model.ErrEmptyName), errors.Is(err, model.ErrUnknownEvent):
		return "invalid_entity"
	default:
		return "syntax"
	}
}
