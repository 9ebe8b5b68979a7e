package production

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/comalice/actorx/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// SQLitePersister stores persisted snapshots in SQLite. Besides the latest
// snapshot per key it keeps every saved version in snapshot_history.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLitePersister creates or opens the database at path and applies the
// schema. It is safe to call on an existing database.
func OpenSQLitePersister(path string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

// Close closes the database.
func (p *SQLitePersister) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *SQLitePersister) Save(ctx context.Context, key string, snapshot core.PersistedSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (key, machine_id, version, status, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			machine_id = excluded.machine_id,
			version = excluded.version,
			status = excluded.status,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		key, snapshot.MachineID, snapshot.Version, string(snapshot.Status), string(body), now,
	); err != nil {
		return fmt.Errorf("upsert snapshot %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_history (key, status, body, saved_at) VALUES (?, ?, ?, ?)`,
		key, string(snapshot.Status), string(body), now,
	); err != nil {
		return fmt.Errorf("append history %q: %w", key, err)
	}
	return tx.Commit()
}

func (p *SQLitePersister) Load(ctx context.Context, key string) (core.PersistedSnapshot, error) {
	var body string
	err := p.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PersistedSnapshot{}, fmt.Errorf("snapshot %q: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.PersistedSnapshot{}, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	return decodeSnapshot(body)
}

// History returns every saved snapshot for key, oldest first.
func (p *SQLitePersister) History(ctx context.Context, key string) ([]core.PersistedSnapshot, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT body FROM snapshot_history WHERE key = ? ORDER BY seq`, key)
	if err != nil {
		return nil, fmt.Errorf("query history %q: %w", key, err)
	}
	defer rows.Close()

	var out []core.PersistedSnapshot
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		snap, err := decodeSnapshot(body)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Keys returns the stored keys in order.
func (p *SQLitePersister) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func decodeSnapshot(body string) (core.PersistedSnapshot, error) {
	var snap core.PersistedSnapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return core.PersistedSnapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return snap, nil
}
