// Package repository persists the analysis audit trail to PostgreSQL.
// The database is optional: the service runs without one, losing only
// the audit history.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is an interface that both pgxpool.Pool and pgx.Tx satisfy.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database access for the audit trail
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewRepository creates a new Repository with a PostgreSQL connection pool
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Repository{pool: pool, db: pool}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Health checks if the database connection is healthy
func (r *Repository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
