package annotate

import (
	"strings"

	"github.com/inodb/vibe-annotate/internal/row"
	"github.com/inodb/vibe-annotate/internal/vcf"
)

// Record row keys.
const (
	KeyChrom   = "CHROM"
	KeyPos     = "POS"
	KeyID      = "ID"
	KeyRef     = "REF"
	KeyAlt     = "ALT"
	KeyQual    = "QUAL"
	KeyFilter  = "FILTER"
	KeyInfo    = "INFO"
	KeyFormat  = "FORMAT"
	KeyStart   = "start"
	KeyEnd     = "end"
	KeyAlleles = "alleles"
	KeySamples = "samples"
)

// recordRow renders a variant as a nested row, ready for flattening.
// Missing values are stored as nil so the flattener drops them.
func recordRow(v *vcf.Variant) *row.Row {
	r := row.New()
	r.Set(KeyChrom, v.Chrom)
	r.Set(KeyPos, v.Pos)
	r.Set(KeyID, nilIfEmpty(v.ID))
	r.Set(KeyRef, v.Ref)
	r.Set(KeyAlt, v.Alt)
	if v.Qual != nil {
		r.Set(KeyQual, *v.Qual)
	} else {
		r.Set(KeyQual, nil)
	}
	r.Set(KeyFilter, v.Filter)

	info := row.New()
	for _, k := range v.InfoKeys {
		info.Set(k, v.Info[k])
	}
	r.Set(KeyInfo, info)

	r.Set(KeyFormat, nilIfEmpty(v.Format))
	r.Set(KeyStart, v.Start())
	r.Set(KeyEnd, v.End())

	alleles := make([]any, 0, len(v.Alt)+1)
	alleles = append(alleles, v.Ref)
	for _, a := range v.Alt {
		alleles = append(alleles, a)
	}
	r.Set(KeyAlleles, alleles)

	samples := make([]any, len(v.Samples))
	for i, s := range v.Samples {
		samples[i] = s
	}
	r.Set(KeySamples, samples)

	return r
}

// altValue returns the alternate alleles of v, or nil when ALT is ".".
func altValue(v *vcf.Variant) any {
	if len(v.Alt) == 0 {
		return nil
	}
	return v.Alt
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ExtractAlt replaces key in a copy of r with the allele sequence(s) of alt
// and adds key+"_type" with the allele type(s). Multiple alleles are joined
// with ";" rather than index-suffixed. ok is false, and r is returned
// unchanged, if alt is neither a vcf.Allele nor a []vcf.Allele; Process
// hits this for records whose ALT is missing.
func ExtractAlt(r *row.Row, alt any, key string) (out *row.Row, ok bool) {
	out = r.Clone()
	switch a := alt.(type) {
	case vcf.Allele:
		out.Set(key+"_type", a.Type)
		out.Set(key, a.Sequence)
	case []vcf.Allele:
		if len(a) == 0 {
			return out, true
		}
		seqs := make([]string, len(a))
		types := make([]string, len(a))
		for i, al := range a {
			seqs[i] = al.Sequence
			types[i] = al.Type
		}
		out.Set(key+"_type", strings.Join(types, row.DefaultDelimiter))
		out.Set(key, strings.Join(seqs, row.DefaultDelimiter))
	default:
		return r, false
	}
	return out, true
}
