// Package store persists fact-check request records so failed requests are
// retried with a bounded budget instead of being silently dropped.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/verinews/relayer/internal/model"
)

// timeFormat is RFC3339 with fixed-width nanoseconds. RFC3339Nano trims
// trailing fractional zeros, which breaks lexicographic ordering of the
// TEXT columns (".15Z" sorts before ".2Z").
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the request-record SQLite database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			request_id TEXT PRIMARY KEY,
			requester TEXT NOT NULL,
			content_uri TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts a newly observed request as pending. Re-observing a known
// request id (a re-delivered event or a poll overlap) is a no-op.
func (s *Store) Record(req model.FactCheckRequest) error {
	now := time.Now().UTC().Format(timeFormat)
	_, err := s.db.Exec(
		`INSERT INTO requests (request_id, requester, content_uri, status, attempts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(request_id) DO NOTHING`,
		req.RequestID.String(), req.Requester, req.ContentURI, string(model.StatusPending), now, now,
	)
	if err != nil {
		return fmt.Errorf("recording request: %w", err)
	}
	return nil
}

// MarkFulfilled marks a request as fulfilled on-chain
func (s *Store) MarkFulfilled(requestID string) error {
	return s.setStatus(requestID, model.StatusFulfilled, "")
}

// MarkFailed marks a request as terminally failed (dead-lettered)
func (s *Store) MarkFailed(requestID, lastError string) error {
	return s.setStatus(requestID, model.StatusFailed, lastError)
}

func (s *Store) setStatus(requestID string, status model.RequestStatus, lastError string) error {
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.Exec(
		`UPDATE requests SET status = ?, last_error = ?, updated_at = ? WHERE request_id = ?`,
		string(status), lastError, now, requestID,
	)
	if err != nil {
		return fmt.Errorf("updating request %s: %w", requestID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown request: %s", requestID)
	}
	return nil
}

// RecordAttempt increments the attempt counter after a failed pipeline run
// and stores the error for diagnostics. The request stays pending.
func (s *Store) RecordAttempt(requestID, lastError string) error {
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.Exec(
		`UPDATE requests SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE request_id = ?`,
		lastError, now, requestID,
	)
	if err != nil {
		return fmt.Errorf("recording attempt for %s: %w", requestID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown request: %s", requestID)
	}
	return nil
}

// Pending returns pending requests with fewer than maxAttempts attempts,
// oldest first, for the retry sweeper.
func (s *Store) Pending(maxAttempts int) ([]model.RequestRecord, error) {
	rows, err := s.db.Query(
		`SELECT request_id, requester, content_uri, status, attempts, COALESCE(last_error, ''), created_at, updated_at
		 FROM requests WHERE status = ? AND attempts < ? ORDER BY created_at ASC`,
		string(model.StatusPending), maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending requests: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Exhausted returns pending requests whose retry budget is spent; the
// sweeper dead-letters these.
func (s *Store) Exhausted(maxAttempts int) ([]model.RequestRecord, error) {
	rows, err := s.db.Query(
		`SELECT request_id, requester, content_uri, status, attempts, COALESCE(last_error, ''), created_at, updated_at
		 FROM requests WHERE status = ? AND attempts >= ? ORDER BY created_at ASC`,
		string(model.StatusPending), maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("querying exhausted requests: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// List returns all request records, newest first, optionally filtered by status
func (s *Store) List(status model.RequestStatus) ([]model.RequestRecord, error) {
	query := `SELECT request_id, requester, content_uri, status, attempts, COALESCE(last_error, ''), created_at, updated_at
		 FROM requests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Get returns one request record by id
func (s *Store) Get(requestID string) (*model.RequestRecord, error) {
	row := s.db.QueryRow(
		`SELECT request_id, requester, content_uri, status, attempts, COALESCE(last_error, ''), created_at, updated_at
		 FROM requests WHERE request_id = ?`, requestID,
	)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown request: %s", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading request %s: %w", requestID, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (*model.RequestRecord, error) {
	var rec model.RequestRecord
	var createdAt, updatedAt string
	if err := r.Scan(&rec.RequestID, &rec.Requester, &rec.ContentURI, &rec.Status, &rec.Attempts, &rec.LastError, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]model.RequestRecord, error) {
	var records []model.RequestRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
