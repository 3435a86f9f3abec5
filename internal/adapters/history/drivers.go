package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewSQLiteRepository opens (or creates) a SQLite history database
func NewSQLiteRepository(ctx context.Context, dbPath string, logger *zap.Logger) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
	}

	db, err := sql.Open(SQLiteDialect.Name, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite3 allows a single writer
	db.SetMaxOpenConns(1)

	return newRepository(ctx, db, SQLiteDialect, logger)
}

// NewMySQLRepository connects to a MySQL history database
func NewMySQLRepository(ctx context.Context, dsn string, logger *zap.Logger) (*SQLRepository, error) {
	db, err := sql.Open(MySQLDialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}
	return newRepository(ctx, db, MySQLDialect, logger)
}

// NewPostgresRepository connects to a PostgreSQL history database
func NewPostgresRepository(ctx context.Context, dsn string, logger *zap.Logger) (*SQLRepository, error) {
	db, err := sql.Open(PostgresDialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(2 * time.Minute)
	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	return newRepository(ctx, db, PostgresDialect, logger)
}

func newRepository(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) (*SQLRepository, error) {
	repo, err := NewSQLRepository(ctx, db, dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
