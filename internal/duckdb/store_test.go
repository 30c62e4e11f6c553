package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-annotate/internal/row"
	"github.com/inodb/vibe-annotate/internal/table"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTable() *table.Table {
	tbl := table.New()
	tbl.Append(row.FromPairs(
		"CHROM", "12", "POS", int64(25245351), "end", int64(25245351),
		"gene_symbol", "KRAS", "VAF", 0.25,
	))
	tbl.Append(row.FromPairs(
		"CHROM", "7", "POS", int64(140753336), "end", int64(140753337),
		"VAF", "0.25;0.2",
	))
	return tbl
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.Equal(t, "", s.Path())
}

func TestWriteTable(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	require.NoError(t, s.WriteTable(ctx, sampleTable()))

	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, ok, err := s.LookupValue(ctx, 0, "gene_symbol")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "KRAS", v)

	v, ok, err = s.LookupValue(ctx, 1, "VAF")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.25;0.2", v)

	v, _, err = s.LookupValue(ctx, 1, "end")
	require.NoError(t, err)
	assert.Equal(t, "140753337", v)

	_, ok, err = s.LookupValue(ctx, 1, "gene_symbol")
	require.NoError(t, err)
	assert.False(t, ok, "missing values are NULL")
}

func TestWriteTable_Replaces(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	require.NoError(t, s.WriteTable(ctx, sampleTable()))

	second := table.New()
	second.Append(row.FromPairs("CHROM", "X", "snp_id", "rs1"))
	require.NoError(t, s.WriteTable(ctx, second))

	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	v, _, err := s.LookupValue(ctx, 0, "snp_id")
	require.NoError(t, err)
	assert.Equal(t, "rs1", v)

	_, _, err = s.LookupValue(ctx, 0, "gene_symbol")
	assert.Error(t, err, "columns from the previous export are gone")
}

func TestWriteTable_Empty(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	require.NoError(t, s.WriteTable(ctx, table.New()))

	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	path := filepath.Join(t.TempDir(), "in.vcf")
	require.NoError(t, os.WriteFile(path, []byte("##fileformat=VCFv4.2\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(21), fp.Size)

	require.NoError(t, s.RecordRun(ctx, fp, 3))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, path, runs[0].Source.Path)
	assert.Equal(t, int64(21), runs[0].Source.Size)
	assert.Equal(t, int64(3), runs[0].Records)
	assert.False(t, runs[0].ExportedAt.IsZero())
}

func TestStatFile_Missing(t *testing.T) {
	_, err := StatFile(filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}
