package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sheikh-saqib/research-funding-ledger/internal/storage/postgres/migrations"
	"github.com/sheikh-saqib/research-funding-ledger/internal/storage/sqlstore"
)

// Dialect describes PostgreSQL to the shared SQL store. Balance rows are
// locked for the rest of the transaction once read.
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	NumberedParams:    true,
	LockClause:        " FOR UPDATE",
	IsUniqueViolation: isUniqueViolation,
}

const uniqueViolation = pq.ErrorCode("23505")

// NewPostgresLedgerStore wraps an open database whose schema is current.
func NewPostgresLedgerStore(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect)
}

// Open connects to databaseURL and applies embedded migrations.
func Open(ctx context.Context, databaseURL string) (*sqlstore.Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := sqlstore.ApplyMigrations(ctx, db, migrations.FS, Dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewPostgresLedgerStore(db), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
