// Package sqlite persists the in-memory record store as JSON buckets in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/spindit/locker-service/internal/repository/memory"
)

// SnapshotStore implements memory.Persister on top of a single state table.
type SnapshotStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ memory.Persister = (*SnapshotStore)(nil)

var buckets = []string{"users", "zones", "lockers", "requests", "assignments", "children"}

// Open creates the database file and state table when missing.
func Open(path string) (*SnapshotStore, error) {
	if path == "" {
		path = "lockers.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SnapshotStore{db: db, path: path}, nil
}

// Load decodes every stored bucket. An empty database yields an empty snapshot.
func (s *SnapshotStore) Load(ctx context.Context) (memory.Snapshot, error) {
	var snapshot memory.Snapshot
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return snapshot, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return snapshot, fmt.Errorf("scan: %w", err)
		}
		target := bucketTarget(&snapshot, bucket)
		if target == nil {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return snapshot, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	return snapshot, rows.Err()
}

// Save upserts every bucket in one SQLite transaction.
func (s *SnapshotStore) Save(ctx context.Context, snapshot memory.Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := json.Marshal(bucketTarget(&snapshot, bucket))
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
			bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// Ping checks the database handle.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Path returns the configured database path.
func (s *SnapshotStore) Path() string { return s.path }

func bucketTarget(snapshot *memory.Snapshot, bucket string) any {
	switch bucket {
	case "users":
		return &snapshot.Users
	case "zones":
		return &snapshot.Zones
	case "lockers":
		return &snapshot.Lockers
	case "requests":
		return &snapshot.Requests
	case "assignments":
		return &snapshot.Assignments
	case "children":
		return &snapshot.Children
	}
	return nil
}
