package row

import (
	"fmt"
	"strings"
)

// PreconditionError reports a field that was expected to hold a
// delimiter-separated value but does not.
type PreconditionError struct {
	Key       string
	Delimiter string
	Value     any
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("key %s does not contain delimiter %q (value %v)", e.Key, e.Delimiter, e.Value)
}

// Split expands the delimited value stored under key into indexed keys:
// the first part replaces r[key], part i is stored under key+i.
func Split(r *Row, key, delim string) error {
	if delim == "" {
		delim = DefaultDelimiter
	}
	v, _ := r.Get(key)
	s, ok := v.(string)
	if !ok || !strings.Contains(s, delim) {
		return &PreconditionError{Key: key, Delimiter: delim, Value: v}
	}
	for i, part := range strings.Split(s, delim) {
		r.Set(SuffixKey(key, i), part)
	}
	return nil
}

// IsMultiValued reports whether the value under key is a string containing delim.
func IsMultiValued(r *Row, key, delim string) bool {
	v, _ := r.Get(key)
	s, ok := v.(string)
	return ok && strings.Contains(s, delim)
}
