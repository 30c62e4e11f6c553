// Package row provides the ordered key-value row used for tabular output and
// the algorithms that normalise nested variant records into it.
package row

import (
	"fmt"
	"math"
	"strconv"
)

// Row is a mapping from column name to value that remembers insertion order.
// The zero value is not usable; create rows with New.
type Row struct {
	keys   []string
	values map[string]any
}

// New creates an empty row.
func New() *Row {
	return &Row{values: make(map[string]any)}
}

// FromPairs builds a row from alternating key/value arguments.
// It panics if a key is not a string or the argument count is odd.
func FromPairs(kv ...any) *Row {
	if len(kv)%2 != 0 {
		panic("row: FromPairs needs an even number of arguments")
	}
	r := New()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("row: key %v is not a string", kv[i]))
		}
		r.Set(key, kv[i+1])
	}
	return r
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (r *Row) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Delete removes key. Deleting a missing key is a no-op.
func (r *Row) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (r *Row) Keys() []string {
	return r.keys
}

// Len returns the number of keys.
func (r *Row) Len() int {
	return len(r.keys)
}

// Clone returns a shallow copy of the row.
func (r *Row) Clone() *Row {
	c := &Row{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Merge sets every key of other on r, in other's order.
func (r *Row) Merge(other *Row) {
	for _, k := range other.keys {
		r.Set(k, other.values[k])
	}
}

// Map returns the row contents as a plain map.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// String returns the row contents as text.
func (r *Row) String() string {
	return fmt.Sprint(r.Map())
}

// SuffixKey returns the column name for the i-th value of a multi-valued
// field: key itself for i == 0, key followed by i otherwise.
func SuffixKey(key string, i int) string {
	if i == 0 {
		return key
	}
	return key + strconv.Itoa(i)
}

// FormatValue renders a scalar row value as text. Nil renders as "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat writes the shortest decimal that round-trips, switching to
// exponent form (1e-05) below 1e-4 and from 1e16 up. Whole numbers carry no
// fractional part. NaN renders as "".
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, bitSize)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}
