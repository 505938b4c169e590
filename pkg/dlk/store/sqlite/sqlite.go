package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
	"github.com/cognicore/dlk/pkg/dlk/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS changes (
	id TEXT PRIMARY KEY,
	at TEXT NOT NULL,
	added TEXT NOT NULL,
	removed TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	change_id TEXT,
	kind TEXT NOT NULL,
	at TEXT NOT NULL,
	nodes TEXT NOT NULL,
	types TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS snapshots_kind ON snapshots(kind, id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// AppendChange inserts a change row
func (s *sqliteStore) AppendChange(ctx context.Context, c store.Change) error {
	added, err := json.Marshal(nonNil(c.Added))
	if err != nil {
		return err
	}
	removed, err := json.Marshal(nonNil(c.Removed))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO changes (id, at, added, removed) VALUES (?, ?, ?, ?)`,
		c.ID, c.At.UTC().Format(time.RFC3339Nano), string(added), string(removed))
	return err
}

// Changes returns changes ordered by ULID
func (s *sqliteStore) Changes(ctx context.Context, limit int) ([]store.Change, error) {
	query := `SELECT id, at, added, removed FROM changes ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Change
	for rows.Next() {
		var (
			c              store.Change
			at             string
			added, removed string
		)
		if err := rows.Scan(&c.ID, &at, &added, &removed); err != nil {
			return nil, err
		}
		if c.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(added), &c.Added); err != nil {
			return nil, fmt.Errorf("change %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(removed), &c.Removed); err != nil {
			return nil, fmt.Errorf("change %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PutSnapshot inserts or replaces a snapshot row
func (s *sqliteStore) PutSnapshot(ctx context.Context, snap store.Snapshot) error {
	nodes, err := json.Marshal(nonNil(snap.Nodes))
	if err != nil {
		return err
	}
	types, err := json.Marshal(nonNil(snap.Types))
	if err != nil {
		return err
	}
	const stmt = `
INSERT INTO snapshots (id, change_id, kind, at, nodes, types)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	change_id=excluded.change_id,
	kind=excluded.kind,
	at=excluded.at,
	nodes=excluded.nodes,
	types=excluded.types;
`
	_, err = s.db.ExecContext(ctx, stmt,
		snap.ID, snap.ChangeID, snap.Kind, snap.At.UTC().Format(time.RFC3339Nano), string(nodes), string(types))
	return err
}

// LatestSnapshot returns the newest snapshot of kind
func (s *sqliteStore) LatestSnapshot(ctx context.Context, kind string) (store.Snapshot, bool, error) {
	var (
		snap         store.Snapshot
		changeID     sql.NullString
		at           string
		nodes, types string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, change_id, kind, at, nodes, types FROM snapshots WHERE kind = ? ORDER BY id DESC LIMIT 1`,
		kind).Scan(&snap.ID, &changeID, &snap.Kind, &at, &nodes, &types)
	if err == sql.ErrNoRows {
		return store.Snapshot{}, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, err
	}
	snap.ChangeID = changeID.String
	if snap.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return store.Snapshot{}, false, err
	}
	if err := json.Unmarshal([]byte(nodes), &snap.Nodes); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}
	if err := json.Unmarshal([]byte(types), &snap.Types); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}
	return snap, true, nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
