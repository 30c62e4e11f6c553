package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-annotate/internal/row"
	"github.com/inodb/vibe-annotate/internal/table"
)

// AnnotationsTable is the name of the exported table.
const AnnotationsTable = "annotations"

// IndexColumn holds the 0-based input position of each row.
const IndexColumn = "row_index"

// WriteTable replaces the annotations table with the contents of t using the
// Appender API. Every table column becomes a VARCHAR column; values absent
// from a row are stored as NULL.
func (s *Store) WriteTable(ctx context.Context, t *table.Table) error {
	columns := t.Columns()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, createTableSQL(columns)); err != nil {
		return fmt.Errorf("create %s table: %w", AnnotationsTable, err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", AnnotationsTable)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	values := make([]driver.Value, len(columns)+1)
	for i, r := range t.Rows() {
		values[0] = int64(i)
		for j, col := range columns {
			v, ok := r.Get(col)
			if !ok {
				values[j+1] = nil
				continue
			}
			values[j+1] = row.FormatValue(v)
		}
		if err := appender.AppendRow(values...); err != nil {
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}

	return appender.Flush()
}

// CountRows returns the number of rows in the annotations table.
func (s *Store) CountRows(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(AnnotationsTable)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", AnnotationsTable, err)
	}
	return n, nil
}

// LookupValue returns the value of column for the row with the given index.
// ok is false if the value is NULL.
func (s *Store) LookupValue(ctx context.Context, index int64, column string) (value string, ok bool, err error) {
	var v *string
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		quoteIdent(column), quoteIdent(AnnotationsTable), quoteIdent(IndexColumn))
	if err := s.db.QueryRowContext(ctx, query, index).Scan(&v); err != nil {
		return "", false, fmt.Errorf("lookup %s at row %d: %w", column, index, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func createTableSQL(columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE TABLE %s (%s BIGINT", quoteIdent(AnnotationsTable), quoteIdent(IndexColumn))
	for _, col := range columns {
		fmt.Fprintf(&b, ", %s VARCHAR", quoteIdent(col))
	}
	b.WriteString(")")
	return b.String()
}

// quoteIdent quotes a column or table name. Column names come from VCF
// headers and may collide with SQL keywords (e.g. "end").
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
