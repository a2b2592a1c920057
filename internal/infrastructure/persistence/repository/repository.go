// Package repository implements the persistence ports over SQLite with raw
// SQL. Every repository resolves its executor from the request context so
// writes participate in the surrounding transaction when one is open.
package repository

import (
	"context"
	"database/sql"
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/infrastructure/persistence/sqlite"
)

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// getExecutor returns the transaction carried by ctx, or the database
func getExecutor(ctx context.Context, db *sql.DB) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok && tx != nil {
		return tx
	}
	return db
}

// mapConstraintError translates a SQLite unique-constraint violation into
// port.ErrDuplicate so callers can branch without driver knowledge
func mapConstraintError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return port.ErrDuplicate
	}
	return err
}
