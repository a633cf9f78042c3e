// Package sqlite is a durable store.Store backed by a single SQLite file.
// Each value is one row keyed by (fingerprint, idx); the primary key makes a
// duplicate index impossible even if two processes race past the length check.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/samplecache/internal/util"
	"github.com/unkn0wn-root/samplecache/store"
)

const createSamplesTable = `
CREATE TABLE IF NOT EXISTS samples (
	fingerprint TEXT NOT NULL,
	idx INTEGER NOT NULL,
	value TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (fingerprint, idx)
);
`

type Options struct {
	Path        string        // required; database file
	BusyTimeout time.Duration // 0 => 5s
}

// Store is an exact, append-only sample store in SQLite.
type Store struct {
	db    *sql.DB
	locks util.KeyedMutex
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Loader = (*Store)(nil)
	_ store.Lister = (*Store)(nil)
)

// New opens (and migrates) the database at opts.Path.
func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite", "file:"+opts.Path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sample db: %w", err)
	}
	if _, err := db.Exec(createSamplesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sample db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Len(ctx context.Context, fp string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM samples WHERE fingerprint = ?`, fp,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sample len: %w", err)
	}
	return n, nil
}

func (s *Store) Get(ctx context.Context, fp string, index int) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM samples WHERE fingerprint = ? AND idx = ?`, fp, index,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sample get: %w", err)
	}
	return v, true, nil
}

func (s *Store) Append(ctx context.Context, fp string, values []string) (int, error) {
	n, _, err := s.appendIf(ctx, fp, -1, values)
	return n, err
}

func (s *Store) AppendAt(ctx context.Context, fp string, at int, values []string) (bool, error) {
	_, ok, err := s.appendIf(ctx, fp, at, values)
	return ok, err
}

// appendIf counts and inserts inside one immediate transaction, which holds
// the database write lock for other processes. at < 0 appends unconditionally.
func (s *Store) appendIf(ctx context.Context, fp string, at int, values []string) (int, bool, error) {
	unlock := s.locks.Lock(fp)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("sample append: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM samples WHERE fingerprint = ?`, fp,
	).Scan(&n); err != nil {
		return 0, false, fmt.Errorf("sample append: count: %w", err)
	}
	if at >= 0 && n != at {
		return n, false, nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (fingerprint, idx, value, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, false, fmt.Errorf("sample append: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, fp, n+i, v, now); err != nil {
			return 0, false, fmt.Errorf("sample append: insert %d: %w", n+i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("sample append: commit: %w", err)
	}
	return n + len(values), true, nil
}

func (s *Store) Load(ctx context.Context, fp string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, value FROM samples WHERE fingerprint = ? ORDER BY idx`, fp)
	if err != nil {
		return nil, fmt.Errorf("sample load: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var idx int
		var v string
		if err := rows.Scan(&idx, &v); err != nil {
			return nil, fmt.Errorf("sample load: %w", err)
		}
		if idx != len(out) {
			return nil, &store.CorruptError{Fingerprint: fp, Err: fmt.Errorf("gap at index %d", len(out))}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT fingerprint FROM samples ORDER BY fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("sample keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("sample keys: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
