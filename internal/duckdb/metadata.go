package duckdb

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Run is one recorded export.
type Run struct {
	Source     FileFingerprint
	Records    int64
	ExportedAt time.Time
}

// RecordRun appends an entry to the run history.
func (s *Store) RecordRun(ctx context.Context, src FileFingerprint, records int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (source, size, mod_time, records, exported_at) VALUES (?, ?, ?, ?, ?)",
		src.Path, src.Size, src.ModTime.UTC(), records, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns the run history, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source, size, mod_time, records, exported_at FROM runs ORDER BY exported_at")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Source.Path, &r.Source.Size, &r.Source.ModTime, &r.Records, &r.ExportedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
