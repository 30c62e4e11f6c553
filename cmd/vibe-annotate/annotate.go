package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-annotate/internal/annotate"
	"github.com/inodb/vibe-annotate/internal/duckdb"
	"github.com/inodb/vibe-annotate/internal/ensembl"
	"github.com/inodb/vibe-annotate/internal/output"
	"github.com/inodb/vibe-annotate/internal/table"
	"github.com/inodb/vibe-annotate/internal/vcf"
)

// Config keys shared by flags, the config file and the environment.
const (
	keyWorkers            = "annotate.workers"
	keyOutput             = "annotate.output"
	keyDuckDB             = "annotate.duckdb"
	keySplitFields        = "annotate.split_fields"
	keyGeneFailure        = "annotate.gene_failure"
	keyConsequenceFailure = "annotate.consequence_failure"
	keyZeroDepth          = "annotate.zero_depth"
	keyServer             = "ensembl.server"
	keySpecies            = "ensembl.species"
	keyTimeout            = "ensembl.timeout"
	keyVEPOptions         = "ensembl.vep_options"
	keyVerbose            = "verbose"
)

const defaultOutput = "test_annotations.csv"

// annotateOptions holds the resolved settings for one run.
type annotateOptions struct {
	Input     string
	Output    string
	DuckDB    string
	Workers   int
	Ensembl   ensembl.Config
	Annotate  annotate.Options
	ZeroDepth table.ZeroDepthPolicy
	Verbose   bool
}

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate <input-file>",
		Short: "Annotate variants in a VCF file",
		Long: `Annotate variants in a VCF file (plain or gzipped, '-' for stdin) with
overlapping genes, the most severe consequence and known colocated variants
from Ensembl, plus VAF/NRef/RAF computed from the NR and NV call fields.`,
		Example: `  vibe-annotate annotate input.vcf
  vibe-annotate annotate -j 8 -o out.csv --duckdb out.duckdb input.vcf.gz
  vibe-annotate annotate --split-fields GL,GOF input.vcf
  cat input.vcf | vibe-annotate annotate -`,
		Args: cobra.ExactArgs(1),
		// Flags are bound only for this command so that config set and
		// config show see user settings, not flag defaults.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, annotateFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadAnnotateOptions(args[0])
			if err != nil {
				return err
			}

			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			return runAnnotate(cmd.Context(), opts, cmd.OutOrStdout(), logger)
		},
	}

	f := cmd.Flags()
	f.IntP("jobs", "j", -1, "Number of parallel workers (1 = sequential, <= 0 = all CPUs)")
	f.StringP("output", "o", defaultOutput, "Output CSV file")
	f.String("duckdb", "", "Also export the table to this DuckDB database")
	f.StringSlice("split-fields", nil, "Multi-valued fields to expand into indexed columns")
	f.String("gene-failure", string(annotate.PolicySkip), "On gene overlap lookup failure: skip or fail")
	f.String("consequence-failure", string(annotate.PolicyFail), "On consequence lookup failure: skip or fail")
	f.String("zero-depth", string(table.ZeroDepthBlank), "When NR is zero: blank or fail")
	f.String("server", ensembl.DefaultServer, "Ensembl REST server")
	f.String("species", ensembl.DefaultSpecies, "Species for Ensembl requests")
	f.Duration("timeout", 0, "HTTP request timeout (0 = none)")
	f.BoolP("verbose", "v", false, "Enable debug logging")

	return cmd
}

// annotateFlagKeys maps config keys to annotate flags.
var annotateFlagKeys = map[string]string{
	keyWorkers:            "jobs",
	keyOutput:             "output",
	keyDuckDB:             "duckdb",
	keySplitFields:        "split-fields",
	keyGeneFailure:        "gene-failure",
	keyConsequenceFailure: "consequence-failure",
	keyZeroDepth:          "zero-depth",
	keyServer:             "server",
	keySpecies:            "species",
	keyTimeout:            "timeout",
	keyVerbose:            "verbose",
}

func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// loadAnnotateOptions resolves run settings from viper.
func loadAnnotateOptions(input string) (annotateOptions, error) {
	geneFailure, err := annotate.ParseFailurePolicy(viper.GetString(keyGeneFailure))
	if err != nil {
		return annotateOptions{}, fmt.Errorf("gene-failure: %w", err)
	}
	consFailure, err := annotate.ParseFailurePolicy(viper.GetString(keyConsequenceFailure))
	if err != nil {
		return annotateOptions{}, fmt.Errorf("consequence-failure: %w", err)
	}
	zeroDepth, err := table.ParseZeroDepthPolicy(viper.GetString(keyZeroDepth))
	if err != nil {
		return annotateOptions{}, fmt.Errorf("zero-depth: %w", err)
	}

	var vepOptions map[string]any
	if m := viper.GetStringMap(keyVEPOptions); len(m) > 0 {
		vepOptions = m
	}

	opts := annotateOptions{
		Input:   input,
		Output:  viper.GetString(keyOutput),
		DuckDB:  viper.GetString(keyDuckDB),
		Workers: viper.GetInt(keyWorkers),
		Ensembl: ensembl.Config{
			Server:     viper.GetString(keyServer),
			Species:    viper.GetString(keySpecies),
			Timeout:    viper.GetDuration(keyTimeout),
			VEPOptions: vepOptions,
			Debug:      viper.GetBool(keyVerbose),
		},
		Annotate: annotate.Options{
			SplitFields:        viper.GetStringSlice(keySplitFields),
			GeneFailure:        geneFailure,
			ConsequenceFailure: consFailure,
		},
		ZeroDepth: zeroDepth,
		Verbose:   viper.GetBool(keyVerbose),
	}
	if opts.Output == "" {
		opts.Output = defaultOutput
	}
	return opts, nil
}

// runAnnotate annotates opts.Input and writes the table. Nothing is written
// unless every record was annotated.
func runAnnotate(ctx context.Context, opts annotateOptions, stdout io.Writer, logger *zap.Logger) error {
	parser, err := vcf.NewParser(opts.Input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error("input file not found", zap.String("path", opts.Input))
		}
		return err
	}
	defer parser.Close()
	logHeader(logger, parser, opts.Annotate.SplitFields)

	client := ensembl.NewClient(opts.Ensembl, logger)
	ann := annotate.NewAnnotator(client, client, opts.Annotate)
	ann.SetLogger(logger)

	logger.Info("annotating",
		zap.String("input", opts.Input),
		zap.String("server", opts.Ensembl.Server),
		zap.Int("workers", opts.Workers))

	tbl, err := ann.AnnotateAll(ctx, parser, opts.Workers)
	if err != nil {
		return err
	}

	if err := table.ComputeFrequencies(tbl, opts.ZeroDepth); err != nil {
		return fmt.Errorf("compute frequencies: %w", err)
	}

	if err := writeCSV(opts.Output, tbl); err != nil {
		return err
	}
	logger.Info("wrote CSV", zap.String("path", opts.Output), zap.Int("rows", tbl.Len()))

	if opts.DuckDB != "" {
		if err := exportDuckDB(ctx, opts.DuckDB, opts.Input, tbl, logger); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "Done! Total records: %d\n", tbl.Len())
	return nil
}

// logHeader reports what the VCF header declares and warns about fields the
// frequency and split steps rely on but the header leaves undeclared.
func logHeader(logger *zap.Logger, parser *vcf.Parser, splitFields []string) {
	logger.Debug("read VCF header",
		zap.Int("header_lines", len(parser.Header())),
		zap.Strings("samples", parser.SampleNames()))

	for _, id := range []string{table.ColNR, table.ColNV} {
		if _, ok := parser.FormatDef(id); !ok {
			logger.Warn("FORMAT field not declared in header; values are kept as strings",
				zap.String("field", id))
		}
	}
	for _, field := range splitFields {
		_, info := parser.InfoDef(field)
		_, format := parser.FormatDef(field)
		if !info && !format {
			logger.Warn("split field not declared in header", zap.String("field", field))
		}
	}
}

func writeCSV(path string, tbl *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := output.NewCSVWriter(f)
	if err := w.WriteTable(tbl); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return f.Close()
}

func exportDuckDB(ctx context.Context, path, input string, tbl *table.Table, logger *zap.Logger) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.WriteTable(ctx, tbl); err != nil {
		return fmt.Errorf("export table: %w", err)
	}

	src := duckdb.FileFingerprint{Path: input}
	if input != "-" {
		if src, err = duckdb.StatFile(input); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if err := store.RecordRun(ctx, src, int64(tbl.Len())); err != nil {
		return err
	}
	logger.Info("exported to DuckDB", zap.String("path", store.Path()))
	return nil
}
