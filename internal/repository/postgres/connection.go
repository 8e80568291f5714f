package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"inkwell/internal/repository"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Projects   string
	Documents  string
	WaitStates string
	WaitTables string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Projects:   fmt.Sprintf("%sprojects", prefix),
		Documents:  fmt.Sprintf("%sdocuments", prefix),
		WaitStates: fmt.Sprintf("%swait_states", prefix),
		WaitTables: fmt.Sprintf("%swait_tables", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// Transaction poolers (PgBouncer on port 6543) don't support prepared
// statements, so when that port is detected the pool is switched to
// QueryExecModeCacheDescribe: it stays on the extended protocol
// (needed for JSONB encoding) but caches descriptions instead of
// prepared statements. An explicit default_query_exec_mode in the
// connection string takes precedence.
//
// Dynamic table prefixes (dev_, test_, prod_) are interpolated into
// the SQL string before it reaches the database, so each environment
// gets its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the
// transaction; otherwise the provided pool. This lets repositories
// automatically participate in transactions when they exist.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repository.DBTX {
	if tx := repository.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
