package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const userTable = `
	CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		email VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL
	) DEFAULT CHARSET=utf8mb4;`

// seq records insertion order; listings break createdAt ties with it.
const notesTable = `
	CREATE TABLE IF NOT EXISTS notes (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id CHAR(26) NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		category VARCHAR(255) NOT NULL,
		is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL,
		user_id CHAR(36) NOT NULL,
		INDEX idx_notes_user_seq (user_id, seq),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) DEFAULT CHARSET=utf8mb4;`

// Connect opens a MySQL pool for dsn. Timestamps are always parsed into
// time.Time in UTC regardless of what the DSN asks for.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("db connector: %w", err)
	}
	conn := sql.OpenDB(connector)
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// Tables returns the DDL for each table by name.
func Tables() map[string]string {
	return map[string]string{"users": userTable, "notes": notesTable}
}

// Migrate creates the users and notes tables if they do not exist.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, userTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := conn.ExecContext(ctx, notesTable); err != nil {
		return fmt.Errorf("create notes table: %w", err)
	}
	return nil
}

// Reset drops both tables. Used by tests against a scratch database.
func Reset(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range []string{"DROP TABLE IF EXISTS notes", "DROP TABLE IF EXISTS users"} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return Migrate(ctx, conn)
}
