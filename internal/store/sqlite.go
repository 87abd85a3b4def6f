package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/devgenie/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS analyses (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		parent_id TEXT,
		mode TEXT NOT NULL,
		language TEXT NOT NULL,
		output_language TEXT NOT NULL,
		file_name TEXT,
		code TEXT NOT NULL,
		question TEXT,
		result TEXT NOT NULL,
		provider TEXT,
		warnings_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_session ON analyses(user_id, session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_analyses_parent ON analyses(parent_id, seq);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}
	return nil
}

// SaveAnalysis appends an analysis to its session's history.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *domain.Analysis) error {
	query := `
	INSERT INTO analyses (
		id, user_id, session_id, parent_id, mode, language, output_language,
		file_name, code, question, result, provider, warnings_json, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var warningsJSON interface{}
	if len(a.Warnings) > 0 {
		data, err := json.Marshal(a.Warnings)
		if err != nil {
			return fmt.Errorf("encode warnings: %w", err)
		}
		warningsJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.SessionID, nullString(a.ParentID),
		string(a.Mode), string(a.Language), string(a.OutputLanguage),
		nullString(a.FileName), a.Code, nullString(a.Question), a.Result,
		nullString(a.Provider), warningsJSON, a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const analysisColumns = `
	id, user_id, session_id, parent_id, mode, language, output_language,
	file_name, code, question, result, provider, warnings_json, created_at`

// GetAnalysis retrieves one analysis owned by userID.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, userID, analysisID string) (*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = ? AND user_id = ?`
	a, err := scanAnalysis(s.db.QueryRowContext(ctx, query, analysisID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalyses returns the most recent analyses of a session, newest first.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, userID, sessionID string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + analysisColumns + `
		FROM analyses WHERE user_id = ? AND session_id = ?
		ORDER BY seq DESC LIMIT ?`
	return s.queryAnalyses(ctx, query, userID, sessionID, limit)
}

// ListThread returns the follow-ups of a root analysis, oldest first.
func (s *SQLiteStore) ListThread(ctx context.Context, rootID string) ([]*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE parent_id = ? ORDER BY seq ASC`
	return s.queryAnalyses(ctx, query, rootID)
}

func (s *SQLiteStore) queryAnalyses(ctx context.Context, query string, args ...interface{}) ([]*domain.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close analyses rows", "error", closeErr)
		}
	}()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var parentID, fileName, question, provider, warningsJSON sql.NullString
	var mode, language, outputLanguage string
	var createdAt int64

	err := row.Scan(
		&a.ID, &a.UserID, &a.SessionID, &parentID, &mode, &language, &outputLanguage,
		&fileName, &a.Code, &question, &a.Result, &provider, &warningsJSON, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan analysis row: %w", err)
	}

	a.ParentID = parentID.String
	a.Mode = domain.Mode(mode)
	a.Language = domain.CodeLanguage(language)
	a.OutputLanguage = domain.OutputLanguage(outputLanguage)
	a.FileName = fileName.String
	a.Question = question.String
	a.Provider = provider.String
	a.CreatedAt = time.UnixMilli(createdAt)
	if warningsJSON.Valid && warningsJSON.String != "" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &a.Warnings); err != nil {
			slog.Warn("failed to decode analysis warnings", "analysis_id", a.ID, "error", err)
		}
	}
	return &a, nil
}

// DeleteSessionAnalyses removes a session's history.
func (s *SQLiteStore) DeleteSessionAnalyses(ctx context.Context, userID, sessionID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session analyses: %w", err)
	}
	return result.RowsAffected()
}

// CleanupExpired removes users inactive for longer than ttl and their history.
func (s *SQLiteStore) CleanupExpired(ctx context.Context, ttl time.Duration) (int64, int64, error) {
	threshold := time.Now().Add(-ttl).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("failed to roll back cleanup", "error", rbErr)
		}
	}()

	analysisRes, err := tx.ExecContext(ctx, `
		DELETE FROM analyses WHERE user_id IN (
			SELECT user_id FROM users WHERE last_seen_at < ?
		)`, threshold)
	if err != nil {
		return 0, 0, fmt.Errorf("delete expired analyses: %w", err)
	}
	analysisRows, err := analysisRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("expired analyses rows affected: %w", err)
	}

	userRes, err := tx.ExecContext(ctx, `DELETE FROM users WHERE last_seen_at < ?`, threshold)
	if err != nil {
		return 0, 0, fmt.Errorf("delete expired users: %w", err)
	}
	userRows, err := userRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("expired users rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return userRows, analysisRows, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
