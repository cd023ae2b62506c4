package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rules (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source_text TEXT    NOT NULL,
	ast         TEXT    NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// SQLiteStore is a SQLite implementation of the Store interface, suitable
// for single-instance deployments that need rules to survive restarts.
// Timestamps are stored as Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database file at path and
// ensures the schema exists. Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer; one connection also keeps a
	// :memory: database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the rules table if it does not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// CreateRule inserts a rule and returns it with its generated id.
func (s *SQLiteStore) CreateRule(ctx context.Context, params CreateParams) (*Rule, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (source_text, ast, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		params.Source, params.AST, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Rule{ID: id, Source: params.Source, AST: params.AST, CreatedAt: now, UpdatedAt: now}, nil
}

// GetRule retrieves a single rule by id.
func (s *SQLiteStore) GetRule(ctx context.Context, id int64) (*Rule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_text, ast, created_at, updated_at FROM rules WHERE id = ?`, id)
	rule, err := scanSQLiteRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// GetRules retrieves several rules in one query and orders them as requested.
func (s *SQLiteStore) GetRules(ctx context.Context, ids []int64) ([]Rule, error) {
	if len(ids) == 0 {
		return []Rule{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, ast, created_at, updated_at FROM rules WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	found, err := collectSQLiteRules(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Rule, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	return orderRules(ids, byID)
}

// ListRules returns all rules ordered by id.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, ast, created_at, updated_at FROM rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectSQLiteRules(rows)
}

// UpdateRule replaces a rule's source and tree.
func (s *SQLiteStore) UpdateRule(ctx context.Context, id int64, params UpdateParams) (*Rule, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET source_text = ?, ast = ?, updated_at = ? WHERE id = ?`,
		params.Source, params.AST, time.Now().UTC().UnixNano(), id)
	if err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetRule(ctx, id)
}

// DeleteRule removes a rule by id.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRule(row rowScanner) (Rule, error) {
	var (
		r                Rule
		created, updated int64
	)
	if err := row.Scan(&r.ID, &r.Source, &r.AST, &created, &updated); err != nil {
		return Rule{}, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.UpdatedAt = time.Unix(0, updated).UTC()
	return r, nil
}

func collectSQLiteRules(rows *sql.Rows) ([]Rule, error) {
	defer rows.Close()
	out := []Rule{}
	for rows.Next() {
		r, err := scanSQLiteRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
