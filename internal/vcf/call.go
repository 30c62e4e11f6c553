package vcf

import "fmt"

// Call holds one sample's FORMAT values for a record.
type Call struct {
	Sample string
	keys   []string
	values map[string]any
}

// NewCall creates a call whose declared fields are keys, in order.
// Missing trailing values are stored as nil.
func NewCall(sample string, keys []string, values []any) *Call {
	c := &Call{
		Sample: sample,
		keys:   keys,
		values: make(map[string]any, len(keys)),
	}
	for i, k := range keys {
		if i < len(values) {
			c.values[k] = values[i]
		} else {
			c.values[k] = nil
		}
	}
	return c
}

// Field returns the value of a declared field.
func (c *Call) Field(name string) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil call has no field %s", name)
	}
	v, ok := c.values[name]
	if !ok {
		return nil, &UnknownFieldError{Sample: c.Sample, Field: name, Declared: c.keys}
	}
	return v, nil
}

// String returns the sample name.
func (c *Call) String() string {
	return c.Sample
}

// Keys returns the declared field names in FORMAT order.
func (c *Call) Keys() []string {
	return c.keys
}

// UnknownFieldError reports a lookup of a field the call does not declare.
type UnknownFieldError struct {
	Sample   string
	Field    string
	Declared []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("sample %s has no field %s (declared: %v)", e.Sample, e.Field, e.Declared)
}
