// Package sqlstore reads authoritative dataset records from a SQLite
// database whose tables mirror the PocketBase collections.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/sources"
)

// identifier matches table and column names that are safe to interpolate.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a SQLite StoreReader.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path. The store only issues SELECTs.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	// query_only is per connection, so keep a single one.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("open", path, fmt.Errorf("set query_only: %w", err))
	}
	return &Store{db: db}, nil
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ID returns the backend id.
func (s *Store) ID() sources.ID {
	return sources.SQLiteID
}

// ReadRecords returns every row of the collection table ordered by sortKey.
// Each row becomes a Record keyed by column name; TEXT and BLOB values are
// returned as strings.
func (s *Store) ReadRecords(ctx context.Context, collection, sortKey string) ([]dataset.Record, error) {
	if !identifier.MatchString(collection) {
		return nil, errors.NewValidationError("collection", collection, "not a valid table name")
	}
	if !identifier.MatchString(sortKey) {
		return nil, errors.NewValidationError("sort_key", sortKey, "not a valid column name")
	}

	query := fmt.Sprintf(`SELECT * FROM "%s" ORDER BY "%s"`, collection, sortKey)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WrapResource("query", "collection", collection, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WrapResource("columns", "collection", collection, err)
	}

	var records []dataset.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.WrapResource("scan", "collection", collection, err)
		}

		record := make(dataset.Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapResource("iterate", "collection", collection, err)
	}

	logging.FromContext(ctx).Debug().
		Str("collection", collection).
		Int("records", len(records)).
		Msg("Read SQLite table")
	return records, nil
}
