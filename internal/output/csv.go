// Package output provides annotation output formatters.
package output

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/inodb/vibe-annotate/internal/row"
	"github.com/inodb/vibe-annotate/internal/table"
)

// CSVWriter writes annotated rows as comma-separated values. The first
// column holds the 0-based row index and has an empty header cell.
type CSVWriter struct {
	buf     *bufio.Writer
	w       *csv.Writer
	columns []string
}

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	buf := bufio.NewWriter(w)
	return &CSVWriter{
		buf: buf,
		w:   csv.NewWriter(buf),
	}
}

// WriteHeader writes the header line and fixes the column order used by Write.
func (cw *CSVWriter) WriteHeader(columns []string) error {
	cw.columns = columns
	record := make([]string, 0, len(columns)+1)
	record = append(record, "")
	record = append(record, columns...)
	return cw.w.Write(record)
}

// Write writes a single row. Columns missing from r are written empty.
func (cw *CSVWriter) Write(index int, r *row.Row) error {
	record := make([]string, 0, len(cw.columns)+1)
	record = append(record, strconv.Itoa(index))
	for _, col := range cw.columns {
		v, _ := r.Get(col)
		record = append(record, row.FormatValue(v))
	}
	return cw.w.Write(record)
}

// WriteTable writes the header and every row of t.
func (cw *CSVWriter) WriteTable(t *table.Table) error {
	if err := cw.WriteHeader(t.Columns()); err != nil {
		return err
	}
	for i, r := range t.Rows() {
		if err := cw.Write(i, r); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return err
	}
	return cw.buf.Flush()
}
