package row

import (
	"fmt"
	"strings"
)

// FormatDelimiter separates field names in a FORMAT specifier.
const FormatDelimiter = ":"

// CallFields is implemented by per-sample call entries that expose their
// fields by name.
type CallFields interface {
	Field(name string) (any, error)
}

// CallTypeError reports a value that is not a sample call entry.
type CallTypeError struct {
	Value any
}

func (e *CallTypeError) Error() string {
	return fmt.Sprintf("expected a sample call entry, got %T", e.Value)
}

// ExtractCall looks up every field named in format on call and returns them
// in declaration order.
func ExtractCall(call any, format string) (*Row, error) {
	c, ok := call.(CallFields)
	if !ok || c == nil {
		return nil, &CallTypeError{Value: call}
	}
	out := New()
	if format == "" {
		return out, nil
	}
	for _, name := range strings.Split(format, FormatDelimiter) {
		v, err := c.Field(name)
		if err != nil {
			return nil, fmt.Errorf("extract call field %s: %w", name, err)
		}
		out.Set(name, v)
	}
	return out, nil
}
