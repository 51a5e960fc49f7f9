package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// schemaStatements create the catalog tables. The unique index on slug is
// the hard backstop for the validation pipeline's slug check: two concurrent
// creates deriving the same slug can both pass validation, but only one
// commit survives; the loser surfaces as ErrDuplicateSlug.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS movies (
        id UUID PRIMARY KEY,
        slug TEXT NOT NULL,
        title TEXT NOT NULL,
        yearofrelease INTEGER NOT NULL
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS movies_slug_idx ON movies USING btree (slug)`,
	`CREATE TABLE IF NOT EXISTS genres (
        movieid UUID NOT NULL REFERENCES movies (id),
        name TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS ratings (
        userid UUID NOT NULL,
        movieid UUID NOT NULL REFERENCES movies (id),
        rating INTEGER NOT NULL,
        PRIMARY KEY (userid, movieid)
    )`,
	`CREATE TABLE IF NOT EXISTS users (
        id UUID PRIMARY KEY,
        email TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        is_admin BOOLEAN NOT NULL DEFAULT FALSE,
        is_trusted_member BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL
    )`,
}

// InitSchema creates all tables and indexes if they do not exist yet.
func InitSchema(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.ErrorContext(ctx, "Failed to execute schema statement", slog.String("error", err.Error()))
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	logger.InfoContext(ctx, "Database schema initialized")
	return nil
}
