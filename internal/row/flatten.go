package row

import (
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultDelimiter joins list values into a single column value.
const DefaultDelimiter = ";"

// missingElement stands in for nil list elements when a list is joined.
const missingElement = "."

// Flattener reduces nested, list-valued records to a single-level row.
type Flattener struct {
	Delimiter string
	logger    *zap.Logger
}

// NewFlattener creates a flattener joining lists with delim.
func NewFlattener(delim string) *Flattener {
	if delim == "" {
		delim = DefaultDelimiter
	}
	return &Flattener{Delimiter: delim, logger: zap.NewNop()}
}

// SetLogger sets the logger used to trace each unpacking step at debug level.
func (f *Flattener) SetLogger(l *zap.Logger) {
	f.logger = l
}

// Flatten flattens r with the default delimiter.
func Flatten(r *Row) *Row {
	return NewFlattener(DefaultDelimiter).Flatten(r)
}

// FlattenMap flattens a plain map with the default delimiter. Keys are
// visited in sorted order.
func FlattenMap(m map[string]any) *Row {
	return Flatten(fromMap(m))
}

// Flatten returns a copy of r in which every value is a scalar:
//   - lists longer than one are joined with the delimiter,
//   - single-element lists are unwrapped,
//   - empty lists and nil values are dropped,
//   - nested mappings are flattened and their keys lifted into the parent.
//
// Child keys that collide with parent keys overwrite them. The input is not
// modified.
func (f *Flattener) Flatten(r *Row) *Row {
	return f.flatten(r, "")
}

func (f *Flattener) flatten(r *Row, indent string) *Row {
	out := r.Clone()
	for _, key := range r.Keys() {
		v, _ := r.Get(key)
		f.assign(out, key, v, indent)
	}
	return out
}

// assign normalises v and stores the result under key in out.
func (f *Flattener) assign(out *Row, key string, v any, indent string) {
	if v == nil {
		out.Delete(key)
		return
	}

	if nested, ok := asRow(v); ok {
		f.logger.Debug(indent+"unpacking nested mapping",
			zap.String("key", key), zap.Int("keys", nested.Len()))
		child := f.flatten(nested, indent+"\t")
		out.Delete(key)
		out.Merge(child)
		f.logger.Debug(indent+"\tadded keys", zap.Int("count", child.Len()))
		return
	}

	list, ok := asList(v)
	if !ok {
		out.Set(key, v)
		return
	}

	switch len(list) {
	case 0:
		out.Delete(key)
	case 1:
		f.logger.Debug(indent+"unwrapping single value", zap.String("key", key))
		f.assign(out, key, list[0], indent)
	default:
		f.logger.Debug(indent+"joining list",
			zap.String("key", key), zap.String("delimiter", f.Delimiter))
		out.Set(key, f.join(list))
	}
}

func (f *Flattener) join(list []any) string {
	parts := make([]string, len(list))
	for i, elem := range list {
		if elem == nil {
			parts[i] = missingElement
			continue
		}
		if nested, ok := asList(elem); ok {
			parts[i] = f.join(nested)
			continue
		}
		parts[i] = FormatValue(elem)
	}
	return strings.Join(parts, f.Delimiter)
}

// asRow reports whether v is a nested mapping and returns it as a Row.
func asRow(v any) (*Row, bool) {
	switch m := v.(type) {
	case *Row:
		if m == nil {
			return New(), true
		}
		return m, true
	case map[string]any:
		return fromMap(m), true
	case map[string]string:
		r := New()
		for _, k := range sortedKeys(m) {
			r.Set(k, m[k])
		}
		return r, true
	}
	return nil, false
}

// asList reports whether v is a slice or array (other than a byte string) and
// returns its elements.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func fromMap(m map[string]any) *Row {
	r := New()
	for _, k := range sortedKeys(m) {
		r.Set(k, m[k])
	}
	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
