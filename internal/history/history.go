// Package history keeps each user's recent search queries in PostgreSQL.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/errors"
)

const (
	DefaultLimit  = 10
	maxLimit      = 100
	maxUserIDLen  = 128
	maxQueryBytes = 1024
)

type Entry struct {
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is safe for concurrent use. A nil *Store means history is disabled:
// Record is a no-op and Recent reports ErrHistoryUnavailable.
type Store struct {
	db     *sql.DB
	limit  int
	logger *slog.Logger
}

// Migrate creates the recent_searches table and its lookup index.
func Migrate(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recent_searches (
			id         BIGSERIAL PRIMARY KEY,
			user_id    TEXT NOT NULL,
			query_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS recent_searches_user_created_idx
			ON recent_searches (user_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migrating recent_searches: %w", err)
		}
	}
	return nil
}

// New returns a store over db. limit is the default page size for Recent.
func New(db *sql.DB, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		db:     db,
		limit:  limit,
		logger: slog.Default().With("component", "search-history"),
	}
}

// Record stores query for userID. Anonymous users and blank queries are
// skipped.
func (s *Store) Record(ctx context.Context, userID, query string) error {
	if s == nil {
		return nil
	}
	userID = strings.TrimSpace(userID)
	query = strings.TrimSpace(query)
	if userID == "" || query == "" {
		return nil
	}
	if err := validateUser(userID); err != nil {
		return err
	}
	if len(query) > maxQueryBytes {
		query = query[:maxQueryBytes]
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recent_searches (user_id, query_text, created_at) VALUES ($1, $2, $3)`,
		userID, query, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording search for %s: %w", userID, err)
	}
	return nil
}

// Recent returns up to limit of userID's searches, newest first. A
// non-positive limit uses the store default.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if s == nil {
		return nil, apperrors.ErrHistoryUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "X-User-ID header is required")
	}
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	limit = s.clamp(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT query_text, created_at FROM recent_searches
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing searches for %s: %w", userID, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Query, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) clamp(limit int) int {
	if limit <= 0 {
		return s.limit
	}
	return min(limit, maxLimit)
}

func validateUser(userID string) error {
	if len(userID) > maxUserIDLen {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "user id longer than %d bytes", maxUserIDLen)
	}
	return nil
}
