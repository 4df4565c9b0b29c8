package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLite stores records in a database file, one row per record.
// All records of a run are written in a single transaction committed by Close.
type SQLite struct {
	db     *sql.DB
	tx     *sql.Tx
	insert *sql.Stmt
	syncID string
}

// OpenSQLite creates or opens the database at path.
func OpenSQLite(path, syncID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, syncID: syncID}, nil
}

// Write inserts a record, replacing an earlier copy from the same run.
func (s *SQLite) Write(ctx context.Context, stream string, rec domain.RowRecord) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO records (sync_id, stream, row_number, data) VALUES (?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("prepare insert: %w", err)
		}
		s.tx, s.insert = tx, stmt
	}

	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode row %d: %w", rec.RowNumber, err)
	}

	if _, err := s.insert.ExecContext(ctx, s.syncID, stream, rec.RowNumber, string(data)); err != nil {
		return fmt.Errorf("insert row %d of %s: %w", rec.RowNumber, stream, err)
	}
	return nil
}

// Close commits pending records and closes the database.
func (s *SQLite) Close() error {
	var commitErr error
	if s.tx != nil {
		s.insert.Close()
		commitErr = s.tx.Commit()
		s.tx, s.insert = nil, nil
	}
	if err := s.db.Close(); err != nil && commitErr == nil {
		return err
	}
	if commitErr != nil {
		return fmt.Errorf("commit records: %w", commitErr)
	}
	return nil
}
