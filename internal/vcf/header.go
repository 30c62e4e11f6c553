package vcf

import (
	"strconv"
	"strings"
)

// FieldDef is an INFO or FORMAT declaration from the VCF header.
type FieldDef struct {
	ID     string
	Number string // "0", "1", "A", "R", "G", "." or a count
	Type   string // Integer, Float, Flag, Character, String
}

// Scalar reports whether values of the field hold at most one item.
func (d FieldDef) Scalar() bool {
	return d.Number == "0" || d.Number == "1"
}

// parseFieldDef parses the body of a "##INFO=<...>" or "##FORMAT=<...>" line.
func parseFieldDef(line, prefix string) (FieldDef, bool) {
	if !strings.HasPrefix(line, prefix) {
		return FieldDef{}, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, prefix), ">")

	var def FieldDef
	for _, kv := range splitMeta(body) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "ID":
			def.ID = v
		case "Number":
			def.Number = v
		case "Type":
			def.Type = v
		}
	}
	return def, def.ID != ""
}

// splitMeta splits on commas that are not inside double quotes.
func splitMeta(s string) []string {
	var parts []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// parseValue converts a raw INFO or FORMAT value according to def.
// Undeclared fields are kept as strings, split on commas when multi-valued.
// Missing values (".") become nil.
func parseValue(raw string, def FieldDef, declared bool) any {
	if raw == "." || raw == "" {
		return nil
	}
	if !declared {
		parts := strings.Split(raw, ",")
		if len(parts) == 1 {
			return raw
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = missingOr(p, p)
		}
		return out
	}
	if def.Scalar() {
		return convert(raw, def.Type)
	}
	parts := strings.Split(raw, ",")
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = convert(p, def.Type)
	}
	return out
}

func convert(raw, typ string) any {
	if raw == "." {
		return nil
	}
	switch typ {
	case "Integer":
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case "Float":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

func missingOr(raw string, v any) any {
	if raw == "." {
		return nil
	}
	return v
}
