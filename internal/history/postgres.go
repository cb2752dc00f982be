package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pool is the slice of pgxpool.Pool the provider uses; pgxmock satisfies it
// in tests.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresProvider implements Provider using PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE searches (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    job_id TEXT NOT NULL,
//	    search_term TEXT NOT NULL,
//	    location TEXT NOT NULL,
//	    results_wanted INT NOT NULL,
//	    returned_count INT NOT NULL,
//	    analyzed BOOLEAN NOT NULL,
//	    output_file TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresProvider struct {
	pool pool
}

// NewPostgresProvider connects a pgx pool and pings it to fail fast on bad
// configuration.
func NewPostgresProvider(ctx context.Context, dsn string) (*PostgresProvider, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresProvider{pool: p}, nil
}

// newWithPool wires an existing pool; used by tests with pgxmock.
func newWithPool(p pool) *PostgresProvider {
	return &PostgresProvider{pool: p}
}

// SaveSearch inserts one row into the searches table.
func (p *PostgresProvider) SaveSearch(ctx context.Context, rec Record) (string, error) {
	query := `
		INSERT INTO searches (job_id, search_term, location, results_wanted, returned_count, analyzed, output_file, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id string
	err := p.pool.QueryRow(ctx, query,
		rec.JobID,
		rec.SearchTerm,
		rec.Location,
		rec.ResultsWanted,
		rec.ReturnedCount,
		rec.Analyzed,
		rec.OutputFile,
		rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert search record: %w", err)
	}
	return id, nil
}

// Close shuts down the connection pool.
func (p *PostgresProvider) Close() error {
	p.pool.Close()
	return nil
}

var _ Provider = (*PostgresProvider)(nil)
