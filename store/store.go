// Package store persists pipeline runs in sqlite: snapshots, centrality
// tables, descriptors, rankings, correlations and centrality profiles for
// similarity search.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

var (
	// ErrRunNotFound is returned for unknown run ids.
	ErrRunNotFound = errors.New("store: run not found")
	// ErrSnapshotNotFound is returned when a run has no snapshot for a key.
	ErrSnapshotNotFound = errors.New("store: snapshot not found")
	// ErrNodeNotFound is returned when a node has no stored profile.
	ErrNodeNotFound = errors.New("store: node not found")
)

// Run status values.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Run represents a row in the runs table.
type Run struct {
	ID         string          `json:"id"`
	Config     json.RawMessage `json:"config,omitempty"`
	Status     string          `json:"status"`
	CreatedAt  string          `json:"created_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
}

// Store wraps the SQLite database for all collabnet persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec profile table.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(ProfileDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Run operations ---

// CreateRun registers a new run with its configuration and returns its id.
func (s *Store) CreateRun(ctx context.Context, config any) (string, error) {
	cfg, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("encoding run config: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, config, status) VALUES (?, ?, ?)",
		id, string(cfg), StatusRunning); err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return id, nil
}

// FinishRun records the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, runID)
	if err != nil {
		return err
	}
	return affected(res, runID)
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var cfg, finished sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, config, status, created_at, finished_at FROM runs WHERE id = ?", runID,
	).Scan(&r.ID, &cfg, &r.Status, &r.CreatedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Valid {
		r.Config = json.RawMessage(cfg.String)
	}
	r.FinishedAt = finished.String
	return &r, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, status, created_at, finished_at FROM runs ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Status, &r.CreatedAt, &finished); err != nil {
			return nil, err
		}
		r.FinishedAt = finished.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the id of the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	return id, err
}

// SaveDiagnostics stores an arbitrary JSON-encodable diagnostics value.
func (s *Store) SaveDiagnostics(ctx context.Context, runID string, diag any) error {
	b, err := json.Marshal(diag)
	if err != nil {
		return fmt.Errorf("encoding diagnostics: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE runs SET diagnostics = ? WHERE id = ?", string(b), runID)
	if err != nil {
		return err
	}
	return affected(res, runID)
}

// Diagnostics decodes the stored diagnostics of a run into dst.
func (s *Store) Diagnostics(ctx context.Context, runID string, dst any) error {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT diagnostics FROM runs WHERE id = ?", runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return err
	}
	if !raw.Valid {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dst)
}

// DeleteRun removes a run and everything stored under it.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// vec0 tables do not take part in foreign key cascades.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_profiles WHERE profile_id IN (
				SELECT p.id FROM profiles p JOIN snapshots sn ON sn.id = p.snapshot_id
				WHERE sn.run_id = ?)`, runID); err != nil {
			return fmt.Errorf("deleting profiles: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID)
		if err != nil {
			return err
		}
		return affected(res, runID)
	})
}

// DBStats holds row counts for the main tables.
type DBStats struct {
	Runs         int `json:"runs"`
	Snapshots    int `json:"snapshots"`
	Edges        int `json:"edges"`
	Centralities int `json:"centralities"`
	Profiles     int `json:"profiles"`
}

// DBStats returns counts of runs, snapshots, edges, centrality rows and profiles.
func (s *Store) DBStats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM runs", &stats.Runs},
		{"SELECT COUNT(*) FROM snapshots", &stats.Snapshots},
		{"SELECT COUNT(*) FROM edges", &stats.Edges},
		{"SELECT COUNT(*) FROM centralities", &stats.Centralities},
		{"SELECT COUNT(*) FROM vec_profiles", &stats.Profiles},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func affected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (s *Store) requireRun(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, runID string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
