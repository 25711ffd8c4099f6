// Package store keeps the history of completed scans in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ScanEntry is one stored scan. RecordsJSON holds the scan records as a
// JSON array; List leaves it empty.
type ScanEntry struct {
	ID           int64
	ScanUUID     string
	Hostname     string
	Username     string
	SystemSerial string
	Header       string
	RecordCount  int
	ScannedAt    time.Time
	StoredAt     time.Time
	RecordsJSON  string
}

// ListFilter holds optional query parameters for listing scans.
type ListFilter struct {
	Hostname      string
	SystemSerial  string
	ScannedAfter  *time.Time
	ScannedBefore *time.Time
	PageSize      int
	Page          int
}

// Store provides CRUD operations for scan history.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a scan and returns the new ID and stored_at time.
func (s *Store) Insert(ctx context.Context, e *ScanEntry) (int64, time.Time, error) {
	storedAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (scan_uuid, hostname, username, system_serial, header, record_count, scanned_at, stored_at, records_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ScanUUID,
		e.Hostname,
		e.Username,
		e.SystemSerial,
		e.Header,
		e.RecordCount,
		e.ScannedAt.UTC().Format(time.RFC3339),
		storedAt.Format(time.RFC3339),
		e.RecordsJSON,
	)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("insert scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("get last insert id: %w", err)
	}

	return id, storedAt, nil
}

const selectColumns = `id, scan_uuid, hostname, username, system_serial, header, record_count, scanned_at, stored_at`

// Get retrieves a scan by ID.
func (s *Store) Get(ctx context.Context, id int64) (*ScanEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+`, records_json FROM scans WHERE id = ?`, id)
	return scanEntry(row)
}

// Latest retrieves the most recent scan of hostname.
func (s *Store) Latest(ctx context.Context, hostname string) (*ScanEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+`, records_json FROM scans WHERE hostname = ?
		 ORDER BY scanned_at DESC, id DESC LIMIT 1`, hostname)
	return scanEntry(row)
}

// Delete removes a scan by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// List returns scan summaries matching the given filter, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]ScanEntry, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scans: %w", err)
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + selectColumns + `, '' FROM scans` + where +
		` ORDER BY scanned_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var entries []ScanEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}

	return entries, total, rows.Err()
}

// Purge deletes scans taken longer than olderThan ago.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE scanned_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge scans: %w", err)
	}
	return result.RowsAffected()
}

func buildWhere(f ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if f.Hostname != "" {
		conditions = append(conditions, "hostname = ?")
		args = append(args, f.Hostname)
	}
	if f.SystemSerial != "" {
		conditions = append(conditions, "system_serial = ?")
		args = append(args, f.SystemSerial)
	}
	if f.ScannedAfter != nil {
		conditions = append(conditions, "scanned_at >= ?")
		args = append(args, f.ScannedAfter.UTC().Format(time.RFC3339))
	}
	if f.ScannedBefore != nil {
		conditions = append(conditions, "scanned_at <= ?")
		args = append(args, f.ScannedBefore.UTC().Format(time.RFC3339))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ScanEntry, error) {
	var e ScanEntry
	var scannedAt, storedAt string
	err := row.Scan(&e.ID, &e.ScanUUID, &e.Hostname, &e.Username, &e.SystemSerial, &e.Header,
		&e.RecordCount, &scannedAt, &storedAt, &e.RecordsJSON)
	if err != nil {
		return nil, err
	}

	e.ScannedAt, _ = time.Parse(time.RFC3339, scannedAt)
	e.StoredAt, _ = time.Parse(time.RFC3339, storedAt)

	return &e, nil
}
