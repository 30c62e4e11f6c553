package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-annotate/internal/ensembl"
	"github.com/inodb/vibe-annotate/internal/row"
	"github.com/inodb/vibe-annotate/internal/vcf"
)

// fakeGenes returns genes keyed by position.
type fakeGenes struct {
	genes map[int64][]ensembl.Gene
	err   error
}

func (f *fakeGenes) OverlapGenes(_ context.Context, _ string, start, _ int64) ([]ensembl.Gene, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.genes[start+1], nil
}

// fakeConsequences returns the same consequence for every variant.
type fakeConsequences struct {
	cons    *ensembl.Consequence
	err     error
	queries []ensembl.VariantQuery
}

func (f *fakeConsequences) Consequence(_ context.Context, q ensembl.VariantQuery) (*ensembl.Consequence, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.cons, nil
}

func strPtr(s string) *string      { return &s }
func floatPtr(f float64) *float64 { return &f }

const testVCF = "##fileformat=VCFv4.2\n" +
	"##INFO=<ID=TC,Number=1,Type=Integer,Description=\"Total coverage\">\n" +
	"##INFO=<ID=FR,Number=.,Type=Float,Description=\"Frequency\">\n" +
	"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n" +
	"##FORMAT=<ID=GL,Number=.,Type=Float,Description=\"Likelihoods\">\n" +
	"##FORMAT=<ID=NR,Number=.,Type=Integer,Description=\"Depth\">\n" +
	"##FORMAT=<ID=NV,Number=.,Type=Integer,Description=\"Variant reads\">\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tTUMOR\n"

func parseVariant(t *testing.T, line string) *vcf.Variant {
	t.Helper()
	p, err := vcf.NewParserFromReader(strings.NewReader(testVCF + line + "\n"))
	require.NoError(t, err)
	v, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}

func krasConsequence() *ensembl.Consequence {
	return &ensembl.Consequence{
		MostSevere: "missense_variant",
		Colocated: []ensembl.ColocatedVariant{
			{ID: "COSV55497369"},
			{ID: "rs121913530", MinorAllele: strPtr("A"), MinorAlleleFreq: floatPtr(0.0002)},
		},
	}
}

func TestProcess_FullRow(t *testing.T) {
	v := parseVariant(t, "chr12\t25245351\t.\tC\tA\t2940\tPASS\tTC=20;FR=0.25\tGT:GL:NR:NV\t0/1:-1,0,-2.5:20:5")

	genes := &fakeGenes{genes: map[int64][]ensembl.Gene{
		25245351: {{ID: "ENSG00000133703", ExternalName: "KRAS", Biotype: "protein_coding", Description: "KRAS proto-oncogene"}},
	}}
	cons := &fakeConsequences{cons: krasConsequence()}
	a := NewAnnotator(genes, cons, DefaultOptions())

	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CHROM", "POS", "REF", "ALT", "QUAL", "start", "end", "alleles", "TC", "FR", "ALT_type",
		"GT", "GL", "NR", "NV",
		"gene_id", "gene_symbol", "gene_biotype", "gene_description",
		"most_severe_consequence", "minor_allele", "minor_allele_freq", "snp_id",
	}, r.Keys())

	checks := map[string]any{
		"CHROM":                   "chr12",
		"POS":                     int64(25245351),
		"ALT":                     "A",
		"ALT_type":                vcf.AlleleSNV,
		"QUAL":                    2940.0,
		"start":                   int64(25245350),
		"end":                     int64(25245351),
		"alleles":                 "C;A",
		"TC":                      20,
		"FR":                      0.25,
		"GL":                      "-1;0;-2.5",
		"NR":                      20,
		"NV":                      5,
		"gene_symbol":             "KRAS",
		"most_severe_consequence": "missense_variant",
		"minor_allele":            "A",
		"minor_allele_freq":       0.0002,
		"snp_id":                  "rs121913530",
	}
	for k, want := range checks {
		got, _ := r.Get(k)
		assert.Equal(t, want, got, k)
	}

	require.Len(t, cons.queries, 1)
	assert.Equal(t, "12 25245351 . C A . . .", cons.queries[0].String())
}

func TestProcess_MultiAllelic(t *testing.T) {
	v := parseVariant(t, "7\t140753336\trs113488022\tA\tT,AG\t.\tQD\t.\tGT:NR:NV\t1/2:20,10:5,2")

	a := NewAnnotator(&fakeGenes{}, &fakeConsequences{cons: &ensembl.Consequence{MostSevere: "missense_variant"}}, DefaultOptions())
	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)

	get := func(k string) any { v, _ := r.Get(k); return v }
	assert.Equal(t, "T;AG", get("ALT"))
	assert.Equal(t, "SNV;INDEL", get("ALT_type"))
	assert.False(t, r.Has("ALT1"), "ALT is joined, not index-suffixed")
	assert.Equal(t, "rs113488022", get("ID"))
	assert.Equal(t, "QD", get("FILTER"))
	assert.Equal(t, "20;10", get("NR"))
	assert.Equal(t, "5;2", get("NV"))
	assert.False(t, r.Has("QUAL"))
}

func TestProcess_SplitFields(t *testing.T) {
	v := parseVariant(t, "1\t100\t.\tA\tG\t.\tPASS\t.\tGT:GL:NR:NV\t0/1:-1,0,-2.5:20:5")

	opts := DefaultOptions()
	opts.SplitFields = []string{"GL", "NR"}
	a := NewAnnotator(&fakeGenes{}, &fakeConsequences{cons: &ensembl.Consequence{MostSevere: "x"}}, opts)

	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)

	get := func(k string) any { v, _ := r.Get(k); return v }
	assert.Equal(t, "-1", get("GL"))
	assert.Equal(t, "0", get("GL1"))
	assert.Equal(t, "-2.5", get("GL2"))
	assert.Equal(t, 20, get("NR"), "single-valued split fields are left alone")
}

func TestProcess_MultipleGenes(t *testing.T) {
	v := parseVariant(t, "1\t100\t.\tA\tG\t.\tPASS\t.\tGT\t0/1")
	genes := &fakeGenes{genes: map[int64][]ensembl.Gene{100: {
		{ID: "G0", ExternalName: "S0", Biotype: "B0", Description: "D0"},
		{ID: "G1", ExternalName: "S1", Biotype: "B1", Description: "D1"},
		{ID: "G2", ExternalName: "S2", Biotype: "B2", Description: "D2"},
	}}}
	a := NewAnnotator(genes, &fakeConsequences{cons: &ensembl.Consequence{MostSevere: "x"}}, DefaultOptions())

	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)

	for i, suffix := range []string{"", "1", "2"} {
		got, _ := r.Get("gene_id" + suffix)
		assert.Equal(t, fmt.Sprintf("G%d", i), got)
		got, _ = r.Get("gene_symbol" + suffix)
		assert.Equal(t, fmt.Sprintf("S%d", i), got)
		got, _ = r.Get("gene_description" + suffix)
		assert.Equal(t, fmt.Sprintf("D%d", i), got)
	}
	assert.False(t, r.Has("gene_id3"))
}

func TestProcess_EmptyGeneOverlap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	v := parseVariant(t, "1\t100\t.\tA\tG\t.\tPASS\t.\tGT\t0/1")
	a := NewAnnotator(&fakeGenes{}, &fakeConsequences{cons: &ensembl.Consequence{MostSevere: "intergenic_variant"}}, DefaultOptions())
	a.SetLogger(zap.New(core))

	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)

	for _, k := range r.Keys() {
		assert.False(t, strings.HasPrefix(k, "gene_"), "unexpected column %s", k)
	}
	assert.Equal(t, 1, logs.FilterMessage("no gene overlap found").Len())
}

func TestProcess_MissingAlt(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	v := parseVariant(t, "1\t100\t.\tA\t.\t.\tPASS\t.\tGT\t0/0")
	require.Empty(t, v.Alt)

	a := NewAnnotator(&fakeGenes{}, &fakeConsequences{cons: &ensembl.Consequence{MostSevere: "intergenic_variant"}}, DefaultOptions())
	a.SetLogger(zap.New(core))

	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)
	assert.False(t, r.Has("ALT_type"))
	assert.Equal(t, "intergenic_variant", r.Map()["most_severe_consequence"])

	entries := logs.FilterMessage("alternate allele is missing; skipping ALT columns").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(100), entries[0].ContextMap()["pos"])
}

func TestProcess_GeneFailurePolicy(t *testing.T) {
	v := parseVariant(t, "1\t100\t.\tA\tG\t.\tPASS\t.\tGT\t0/1")
	genes := &fakeGenes{err: &ensembl.LookupError{Endpoint: "overlap/region", StatusCode: 500}}
	cons := &fakeConsequences{cons: &ensembl.Consequence{MostSevere: "x"}}

	a := NewAnnotator(genes, cons, DefaultOptions())
	r, err := a.Process(context.Background(), v)
	require.NoError(t, err, "gene overlap failures are skipped by default")
	assert.False(t, r.Has("gene_id"))
	assert.True(t, r.Has("most_severe_consequence"))

	opts := DefaultOptions()
	opts.GeneFailure = PolicyFail
	a = NewAnnotator(genes, cons, opts)
	_, err = a.Process(context.Background(), v)
	var le *ensembl.LookupError
	assert.True(t, errors.As(err, &le))
}

func TestProcess_ConsequenceFailurePolicy(t *testing.T) {
	v := parseVariant(t, "1\t100\t.\tA\tG\t.\tPASS\t.\tGT\t0/1")
	cons := &fakeConsequences{err: &ensembl.LookupError{Endpoint: "vep/region", StatusCode: 400}}

	a := NewAnnotator(&fakeGenes{}, cons, DefaultOptions())
	_, err := a.Process(context.Background(), v)
	var le *ensembl.LookupError
	require.True(t, errors.As(err, &le), "consequence failures abort by default")

	opts := DefaultOptions()
	opts.ConsequenceFailure = PolicySkip
	a = NewAnnotator(&fakeGenes{}, cons, opts)
	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)
	assert.False(t, r.Has("most_severe_consequence"))
}

func TestProcess_NoMinorAllele(t *testing.T) {
	v := parseVariant(t, "1\t100\t.\tA\tG\t.\tPASS\t.\tGT\t0/1")
	cons := &fakeConsequences{cons: &ensembl.Consequence{
		MostSevere: "x",
		Colocated:  []ensembl.ColocatedVariant{{ID: "COSV1"}},
	}}
	a := NewAnnotator(&fakeGenes{}, cons, DefaultOptions())

	r, err := a.Process(context.Background(), v)
	require.NoError(t, err)
	for _, k := range []string{"minor_allele", "minor_allele_freq", "snp_id"} {
		assert.False(t, r.Has(k), k)
	}
}

func TestProcess_CallErrors(t *testing.T) {
	cons := &fakeConsequences{cons: &ensembl.Consequence{MostSevere: "x"}}
	a := NewAnnotator(&fakeGenes{}, cons, DefaultOptions())

	sitesOnly := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n1\t100\t.\tA\tG\t.\tPASS\t.\n"
	p, err := vcf.NewParserFromReader(strings.NewReader(sitesOnly))
	require.NoError(t, err)
	v, err := p.Next()
	require.NoError(t, err)

	_, err = a.Process(context.Background(), v)
	var te *row.CallTypeError
	assert.True(t, errors.As(err, &te), "got %v", err)

	twoSamples := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tA\tB\n1\t100\t.\tA\tG\t.\tPASS\t.\tGT\t0/1\t1/1\n"
	p, err = vcf.NewParserFromReader(strings.NewReader(twoSamples))
	require.NoError(t, err)
	v, err = p.Next()
	require.NoError(t, err)

	_, err = a.Process(context.Background(), v)
	assert.True(t, errors.As(err, &te), "got %v", err)
}

func TestExtractAlt(t *testing.T) {
	base := row.FromPairs("ALT", "x")

	out, ok := ExtractAlt(base, vcf.NewAllele("A", "T"), "ALT")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"ALT": "T", "ALT_type": "SNV"}, out.Map())

	out, ok = ExtractAlt(base, []vcf.Allele{vcf.NewAllele("A", "T"), vcf.NewAllele("A", "<DEL>")}, "ALT")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"ALT": "T;<DEL>", "ALT_type": "SNV;SV"}, out.Map())

	out, ok = ExtractAlt(base, 42, "ALT")
	assert.False(t, ok)
	assert.Same(t, base, out)

	v, _ := base.Get("ALT")
	assert.Equal(t, "x", v, "input row is not modified")
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
