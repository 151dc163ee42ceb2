// Package archive reads the secondary source of truth: the records archive
// Postgres database. Rows are returned in query order; the reconciliation
// engine preserves that order.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"fmsync/internal/reconcile"
)

// Source reads project location rows from the archive database.
type Source struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the archive database and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Source, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging archive database: %w", err)
	}
	logger.Debug("connected to archive database")
	return &Source{db: db, logger: logger}, nil
}

// ProjectLocations returns every project row carrying a file server
// location, filtered upstream to non-null paths.
func (s *Source) ProjectLocations(ctx context.Context) ([]reconcile.SourceRow, error) {
	const q = `
		SELECT number, file_server_location
		FROM projects
		WHERE file_server_location IS NOT NULL
		ORDER BY number`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying project locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []reconcile.SourceRow
	for rows.Next() {
		var row reconcile.SourceRow
		if err := rows.Scan(&row.BusinessKey, &row.ForeignPath); err != nil {
			return nil, fmt.Errorf("scanning project location row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading project location rows: %w", err)
	}

	s.logger.Info("loaded project locations from archive", "rows", len(out))
	return out, nil
}

// Close releases the database connection pool.
func (s *Source) Close() error { return s.db.Close() }
