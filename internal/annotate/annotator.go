// Package annotate turns VCF records into annotated, flattened table rows.
package annotate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-annotate/internal/ensembl"
	"github.com/inodb/vibe-annotate/internal/row"
	"github.com/inodb/vibe-annotate/internal/vcf"
)

// Annotation column names.
const (
	ColGeneID          = "gene_id"
	ColGeneSymbol      = "gene_symbol"
	ColGeneBiotype     = "gene_biotype"
	ColGeneDescription = "gene_description"
	ColMostSevere      = "most_severe_consequence"
	ColMinorAllele     = "minor_allele"
	ColMinorAlleleFreq = "minor_allele_freq"
	ColSNPID           = "snp_id"
)

// GeneLookup finds genes overlapping a genomic interval.
type GeneLookup interface {
	OverlapGenes(ctx context.Context, chrom string, start, end int64) ([]ensembl.Gene, error)
}

// ConsequenceLookup predicts the consequence of a variant.
type ConsequenceLookup interface {
	Consequence(ctx context.Context, q ensembl.VariantQuery) (*ensembl.Consequence, error)
}

// Annotator annotates variants with gene overlap and consequence data.
type Annotator struct {
	genes        GeneLookup
	consequences ConsequenceLookup
	opts         Options
	flattener    *row.Flattener
	logger       *zap.Logger
}

// NewAnnotator creates a new annotator backed by the given lookups.
func NewAnnotator(genes GeneLookup, consequences ConsequenceLookup, opts Options) *Annotator {
	if opts.Delimiter == "" {
		opts.Delimiter = row.DefaultDelimiter
	}
	if opts.GeneFailure == "" {
		opts.GeneFailure = PolicySkip
	}
	if opts.ConsequenceFailure == "" {
		opts.ConsequenceFailure = PolicyFail
	}
	return &Annotator{
		genes:        genes,
		consequences: consequences,
		opts:         opts,
		flattener:    row.NewFlattener(opts.Delimiter),
		logger:       zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
	a.flattener.SetLogger(l.Named("flatten"))
}

// Process annotates a single variant and returns its flattened row.
func (a *Annotator) Process(ctx context.Context, v *vcf.Variant) (*row.Row, error) {
	r := a.flattener.Flatten(recordRow(v))

	if extracted, ok := ExtractAlt(r, altValue(v), KeyAlt); ok {
		r = extracted
	} else {
		a.logger.Warn("alternate allele is missing; skipping ALT columns",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
	}

	samples, _ := r.Get(KeySamples)
	format, _ := r.Get(KeyFormat)
	formatStr, _ := format.(string)
	call, err := row.ExtractCall(samples, formatStr)
	if err != nil {
		return nil, fmt.Errorf("extract call: %w", err)
	}
	r.Delete(KeySamples)
	r.Delete(KeyFormat)
	r.Merge(a.flattener.Flatten(call))

	for _, field := range a.opts.SplitFields {
		if !row.IsMultiValued(r, field, a.opts.Delimiter) {
			continue
		}
		if err := row.Split(r, field, a.opts.Delimiter); err != nil {
			return nil, err
		}
	}

	if err := a.addGenes(ctx, v, r); err != nil {
		return nil, err
	}
	if err := a.addConsequence(ctx, v, r); err != nil {
		return nil, err
	}

	return r, nil
}

// addGenes adds gene_id, gene_symbol, gene_biotype and gene_description for
// every overlapping gene, suffixing all but the first with its index.
func (a *Annotator) addGenes(ctx context.Context, v *vcf.Variant, r *row.Row) error {
	genes, err := a.genes.OverlapGenes(ctx, v.NormalizeChrom(), v.Start(), v.End())
	if err != nil {
		if a.opts.GeneFailure == PolicyFail {
			return fmt.Errorf("gene overlap: %w", err)
		}
		a.logger.Warn("gene overlap lookup failed",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos), zap.Error(err))
		return nil
	}
	if len(genes) == 0 {
		a.logger.Info("no gene overlap found",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
		return nil
	}

	for i, g := range genes {
		r.Set(row.SuffixKey(ColGeneID, i), g.ID)
		r.Set(row.SuffixKey(ColGeneSymbol, i), g.ExternalName)
		r.Set(row.SuffixKey(ColGeneBiotype, i), g.Biotype)
		r.Set(row.SuffixKey(ColGeneDescription, i), g.Description)
	}
	return nil
}

// addConsequence adds most_severe_consequence and, when a colocated variant
// reports one, its minor allele, frequency and identifier.
func (a *Annotator) addConsequence(ctx context.Context, v *vcf.Variant, r *row.Row) error {
	cons, err := a.consequences.Consequence(ctx, ensembl.VariantQuery{
		Chrom: v.NormalizeChrom(),
		Pos:   v.Pos,
		ID:    v.ID,
		Ref:   v.Ref,
		Alt:   v.FirstAlt(),
	})
	if err != nil {
		if a.opts.ConsequenceFailure == PolicySkip {
			a.logger.Warn("consequence lookup failed",
				zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos), zap.Error(err))
			return nil
		}
		return fmt.Errorf("consequence: %w", err)
	}

	r.Set(ColMostSevere, cons.MostSevere)

	if cv, ok := cons.FirstMinorAllele(); ok {
		r.Set(ColMinorAllele, *cv.MinorAllele)
		if cv.MinorAlleleFreq != nil {
			r.Set(ColMinorAlleleFreq, *cv.MinorAlleleFreq)
		}
		r.Set(ColSNPID, cv.ID)
	}
	return nil
}
