package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rules (
	id          BIGSERIAL PRIMARY KEY,
	source_text TEXT        NOT NULL,
	ast         TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const ruleColumns = `id, source_text, ast, created_at, updated_at`

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the rules table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create rules table: %w", err)
	}
	return nil
}

// CreateRule inserts a rule and returns it with its generated id.
func (p *PostgresStore) CreateRule(ctx context.Context, params CreateParams) (*Rule, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO rules (source_text, ast) VALUES ($1, $2) RETURNING `+ruleColumns,
		params.Source, params.AST)
	rule, err := scanRule(row)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetRule retrieves a single rule by id from the database.
func (p *PostgresStore) GetRule(ctx context.Context, id int64) (*Rule, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// GetRules retrieves several rules in one query and orders them as requested.
func (p *PostgresStore) GetRules(ctx context.Context, ids []int64) ([]Rule, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	found, err := collectRules(rows)
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
func (p *PostgresStore) ListRules(ctx context.Context) ([]Rule, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// UpdateRule replaces a rule's source and tree.
func (p *PostgresStore) UpdateRule(ctx context.Context, id int64, params UpdateParams) (*Rule, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE rules SET source_text = $2, ast = $3, updated_at = now() WHERE id = $1 RETURNING `+ruleColumns,
		id, params.Source, params.AST)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// DeleteRule removes a rule from the database.
func (p *PostgresStore) DeleteRule(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	return err
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	err := row.Scan(&r.ID, &r.Source, &r.AST, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func collectRules(rows pgx.Rows) ([]Rule, error) {
	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Rule, error) {
		return scanRule(row)
	})
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}
