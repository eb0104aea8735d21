package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"caringcms/api/internal/util"
)

// PostgresStore keeps documents in a hosted Postgres database. Each row
// carries a token column regenerated on every write; conditional updates
// compare tokens inside a single statement so two racing writers resolve to
// exactly one winner. Every successful write also appends a row to
// document_revisions with the human-readable message.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping db: %v", ErrUnavailable, err)
	}
	return db, nil
}

func (s *PostgresStore) Read(ctx context.Context, path string) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx,
		`SELECT path, content, token FROM documents WHERE path=$1`,
		path,
	).Scan(&doc.Path, &doc.Content, &doc.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, err)
	}
	return doc, nil
}

func (s *PostgresStore) Write(ctx context.Context, path string, content []byte, token, message string) (string, error) {
	newToken := util.NewID("rev")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: begin write tx: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if token == "" {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO documents (path, content, token)
			VALUES ($1, $2, $3)
			ON CONFLICT (path) DO NOTHING
		`, path, content, newToken)
		if err != nil {
			return "", fmt.Errorf("%w: insert %s: %v", ErrUnavailable, path, err)
		}
		if inserted, _ := result.RowsAffected(); inserted == 0 {
			return "", ErrConflict
		}
	} else {
		result, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET content=$2, token=$3, updated_at=NOW()
			WHERE path=$1 AND token=$4
		`, path, content, newToken, token)
		if err != nil {
			return "", fmt.Errorf("%w: update %s: %v", ErrUnavailable, path, err)
		}
		if updated, _ := result.RowsAffected(); updated == 0 {
			return "", ErrConflict
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_revisions (path, token, message)
		VALUES ($1, $2, $3)
	`, path, newToken, message); err != nil {
		return "", fmt.Errorf("%w: record revision for %s: %v", ErrUnavailable, path, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: commit write tx: %v", ErrUnavailable, err)
	}
	return newToken, nil
}
