package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/phish-shield/internal/core"
	"go.uber.org/zap"
)

// Dialect holds the statements that differ between SQL backends
type Dialect struct {
	Name        string
	CreateTable string
	// Placeholder returns the bind parameter for the n-th (1-based) argument
	Placeholder func(n int) string
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// SQLiteDialect is used with github.com/mattn/go-sqlite3
var SQLiteDialect = Dialect{
	Name: "sqlite3",
	CreateTable: `
		CREATE TABLE IF NOT EXISTS phish_history (
			position INTEGER PRIMARY KEY,
			requested_at TIMESTAMP NOT NULL,
			score REAL NOT NULL,
			risk_level TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
	Placeholder: questionMark,
}

// MySQLDialect is used with github.com/go-sql-driver/mysql
var MySQLDialect = Dialect{
	Name: "mysql",
	CreateTable: `
		CREATE TABLE IF NOT EXISTS phish_history (
			position INT PRIMARY KEY,
			requested_at DATETIME(6) NOT NULL,
			score DOUBLE NOT NULL,
			risk_level VARCHAR(16) NOT NULL,
			payload MEDIUMTEXT NOT NULL
		)`,
	Placeholder: questionMark,
}

// PostgresDialect is used with the pgx database/sql driver
var PostgresDialect = Dialect{
	Name: "pgx",
	CreateTable: `
		CREATE TABLE IF NOT EXISTS phish_history (
			position INTEGER PRIMARY KEY,
			requested_at TIMESTAMPTZ NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			risk_level TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
	Placeholder: dollar,
}

// SQLRepository persists the history in the phish_history table. Position 0 is the
// newest entry. Each save rewrites the table in one transaction.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewSQLRepository wraps an open database. The table is created if missing.
func NewSQLRepository(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) (*SQLRepository, error) {
	if _, err := db.ExecContext(ctx, dialect.CreateTable); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQLRepository{db: db, dialect: dialect, logger: logger}, nil
}

// Load reads the entries ordered by position
func (r *SQLRepository) Load(ctx context.Context) ([]core.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM phish_history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []core.HistoryEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		var entry core.HistoryEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode history row %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return entries, nil
}

// Save replaces the table contents with the snapshot
func (r *SQLRepository) Save(ctx context.Context, entries []core.HistoryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM phish_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	if len(entries) > 0 {
		insert := r.insertStatement()
		for i, entry := range entries {
			payload, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("failed to encode history entry %d: %w", i, err)
			}
			var score float64
			var level string
			if entry.Result != nil {
				score = entry.Result.Score
				level = string(entry.Result.RiskLevel)
			}
			if _, err := tx.ExecContext(ctx, insert, i, entry.RequestedAt.UTC().Truncate(time.Microsecond), score, level, string(payload)); err != nil {
				return fmt.Errorf("failed to insert history entry %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}

	r.logger.Debug("History saved", zap.String("dialect", r.dialect.Name), zap.Int("entries", len(entries)))
	return nil
}

func (r *SQLRepository) insertStatement() string {
	params := make([]string, 5)
	for i := range params {
		params[i] = r.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf(
		`INSERT INTO phish_history (position, requested_at, score, risk_level, payload) VALUES (%s)`,
		strings.Join(params, ", "),
	)
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	if err := r.db.Close(); err != nil {
		r.logger.Error("Failed to close history database", zap.String("dialect", r.dialect.Name), zap.Error(err))
		return err
	}
	return nil
}
