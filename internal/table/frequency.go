package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-annotate/internal/row"
)

// Read depth and derived frequency columns.
const (
	ColNR   = "NR"   // total read depth
	ColNV   = "NV"   // variant-supporting reads
	ColVAF  = "VAF"  // NV / NR
	ColNRef = "NRef" // NR - NV
	ColRAF  = "RAF"  // NRef / NR
)

// ZeroDepthPolicy decides how a zero NR is handled.
type ZeroDepthPolicy string

const (
	// ZeroDepthBlank leaves VAF and RAF empty for the affected component.
	ZeroDepthBlank ZeroDepthPolicy = "blank"
	// ZeroDepthFail aborts with a *DivisionError.
	ZeroDepthFail ZeroDepthPolicy = "fail"
)

// ParseZeroDepthPolicy parses "blank" or "fail".
func ParseZeroDepthPolicy(s string) (ZeroDepthPolicy, error) {
	switch p := ZeroDepthPolicy(s); p {
	case ZeroDepthBlank, ZeroDepthFail:
		return p, nil
	}
	return "", fmt.Errorf("unknown zero depth policy %q (want %s or %s)", s, ZeroDepthBlank, ZeroDepthFail)
}

// DivisionError reports a zero read depth.
type DivisionError struct {
	Row int
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("row %d: %s is zero", e.Row, ColNR)
}

// DepthError reports a read depth value that cannot be used.
type DepthError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("row %d: column %s value %q: %s", e.Row, e.Column, e.Value, e.Reason)
}

// ComputeFrequencies adds VAF, NRef and RAF to every row from its NR and NV
// columns. Values holding several ";"-separated depths are computed per
// component and joined back; NR and NV are rewritten the same way. Rows
// without NR or NV get blank frequency columns.
func ComputeFrequencies(t *Table, policy ZeroDepthPolicy) error {
	for i, r := range t.rows {
		if err := computeRow(i, r, policy); err != nil {
			return err
		}
	}
	return nil
}

func computeRow(i int, r *row.Row, policy ZeroDepthPolicy) error {
	nrRaw, okNR := r.Get(ColNR)
	nvRaw, okNV := r.Get(ColNV)
	if !okNR || !okNV {
		r.Set(ColVAF, "")
		r.Set(ColNRef, "")
		r.Set(ColRAF, "")
		return nil
	}

	nrs, err := parseDepths(i, ColNR, nrRaw)
	if err != nil {
		return err
	}
	nvs, err := parseDepths(i, ColNV, nvRaw)
	if err != nil {
		return err
	}
	if len(nrs) != len(nvs) {
		return &DepthError{
			Row:    i,
			Column: ColNV,
			Value:  row.FormatValue(nvRaw),
			Reason: fmt.Sprintf("%d values for %d %s values", len(nvs), len(nrs), ColNR),
		}
	}

	vafs := make([]any, len(nrs))
	nrefs := make([]any, len(nrs))
	rafs := make([]any, len(nrs))
	for j := range nrs {
		nr, nv := nrs[j], nvs[j]
		nrefs[j] = nr - nv
		if nr == 0 {
			if policy == ZeroDepthFail {
				return &DivisionError{Row: i}
			}
			vafs[j], rafs[j] = "", ""
			continue
		}
		vafs[j] = float64(nv) / float64(nr)
		rafs[j] = float64(nr-nv) / float64(nr)
	}

	if len(nrs) == 1 {
		r.Set(ColNR, nrs[0])
		r.Set(ColNV, nvs[0])
		r.Set(ColVAF, vafs[0])
		r.Set(ColNRef, nrefs[0])
		r.Set(ColRAF, rafs[0])
		return nil
	}

	r.Set(ColNR, joinInts(nrs))
	r.Set(ColNV, joinInts(nvs))
	r.Set(ColVAF, join(vafs))
	r.Set(ColNRef, join(nrefs))
	r.Set(ColRAF, join(rafs))
	return nil
}

// parseDepths splits a depth value on ";" into integer components.
func parseDepths(i int, column string, v any) ([]int, error) {
	s := row.FormatValue(v)
	parts := strings.Split(s, row.DefaultDelimiter)
	out := make([]int, len(parts))
	for j, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, &DepthError{Row: i, Column: column, Value: s, Reason: "not an integer"}
		}
		out[j] = n
	}
	return out, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, row.DefaultDelimiter)
}

func join(vs []any) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = row.FormatValue(v)
	}
	return strings.Join(parts, row.DefaultDelimiter)
}
