package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Record is one persisted activity row. Records are immutable once written;
// the store exposes no update or delete path.
type Record struct {
	ID            uuid.UUID      `json:"id"`
	UserID        *int64         `json:"user_id"`
	Action        string         `json:"action"`
	Route         *string        `json:"route"`
	IPAddress     *string        `json:"ip_address"`
	UserAgent     *string        `json:"user_agent"`
	StatusCode    *int           `json:"status_code"`
	ExecutionTime *float64       `json:"execution_time"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ErrEmptyAction rejects writes with no action: malformed records are
// refused outright rather than partially stored.
var ErrEmptyAction = errors.New("store: record action must not be empty")

// Store is the append-only Postgres collection of activity records.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects to Postgres, retrying the initial ping with backoff, and
// ensures the schema exists.
func Open(connStr string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	for i := 0; i < 10; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		logger.Warn("failed to connect to database, retrying",
			"attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("store: connecting after 10 attempts: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}
	return New(db), nil
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS user_logs (
		id UUID PRIMARY KEY,
		user_id BIGINT,
		action TEXT NOT NULL,
		route TEXT,
		ip_address TEXT,
		user_agent TEXT,
		status_code INTEGER,
		execution_time DOUBLE PRECISION,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS user_logs_user_id_created_at_idx
		ON user_logs (user_id, created_at DESC)
`

// Append writes a record, assigning its identifier and persistence
// timestamp, and returns the stored value. A failed write surfaces as an
// error; the store never retries internally.
func (s *Store) Append(ctx context.Context, rec Record) (Record, error) {
	if rec.Action == "" {
		return Record{}, ErrEmptyAction
	}
	rec.ID = uuid.New()
	rec.CreatedAt = s.now()

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return Record{}, fmt.Errorf("store: encoding metadata: %w", err)
	}

	const q = `
		INSERT INTO user_logs
			(id, user_id, action, route, ip_address, user_agent, status_code, execution_time, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.Action, rec.Route, rec.IPAddress,
		rec.UserAgent, rec.StatusCode, rec.ExecutionTime, metaJSON, rec.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("store: inserting record: %w", err)
	}
	return rec, nil
}

const selectColumns = `
	SELECT id, user_id, action, route, ip_address, user_agent,
		status_code, execution_time, metadata, created_at
	FROM user_logs
`

// Recent returns the newest records first, limited to n (10 when n <= 0).
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("store: querying recent records: %w", err)
	}
	return scanRecords(rows)
}

// ForUser returns every record for one actor, newest first.
func (s *Store) ForUser(ctx context.Context, userID int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: querying user records: %w", err)
	}
	return scanRecords(rows)
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: counting records: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var metaJSON []byte
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.Action, &rec.Route,
			&rec.IPAddress, &rec.UserAgent, &rec.StatusCode,
			&rec.ExecutionTime, &metaJSON, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("store: scanning record: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("store: decoding metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating records: %w", err)
	}
	return records, nil
}
