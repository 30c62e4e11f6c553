// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Allele types.
const (
	AlleleSNV   = "SNV"
	AlleleMNV   = "MNV"
	AlleleIndel = "INDEL"
	AlleleSV    = "SV"
	AlleleBND   = "BND"
)

// Allele is one alternate allele of a variant.
type Allele struct {
	Sequence string
	Type     string
}

// String returns the allele sequence.
func (a Allele) String() string {
	return a.Sequence
}

// NewAllele classifies alt relative to ref.
func NewAllele(ref, alt string) Allele {
	a := Allele{Sequence: alt}
	switch {
	case strings.HasPrefix(alt, "<"):
		a.Type = AlleleSV
	case strings.ContainsAny(alt, "[]") || strings.HasPrefix(alt, ".") || strings.HasSuffix(alt, "."):
		a.Type = AlleleBND
	case len(alt) == 1 && len(ref) == 1:
		a.Type = AlleleSNV
	case len(alt) == len(ref):
		a.Type = AlleleMNV
	default:
		a.Type = AlleleIndel
	}
	return a
}

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom    string         // Chromosome name (e.g., "12", "chr12")
	Pos      int64          // 1-based genomic position
	ID       string         // Variant identifier, empty when missing
	Ref      string         // Reference allele
	Alt      []Allele       // Alternate alleles, empty when missing
	Qual     *float64       // Quality score, nil when missing
	Filter   []string       // Failed filters; empty for PASS, nil when missing
	Info     map[string]any // INFO field values typed by the header
	InfoKeys []string       // INFO keys in file order
	Format   string         // FORMAT specifier (e.g. "GT:GQ:NR:NV")
	Samples  []*Call        // One call per sample column
}

// Start returns the 0-based start of the reference allele.
func (v *Variant) Start() int64 {
	return v.Pos - 1
}

// End returns the 0-based, exclusive end of the reference allele.
func (v *Variant) End() int64 {
	return v.Start() + int64(len(v.Ref))
}

// FirstAlt returns the first alternate allele sequence, or "." if there is none.
func (v *Variant) FirstAlt() string {
	if len(v.Alt) == 0 {
		return "."
	}
	return v.Alt[0].Sequence
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}
