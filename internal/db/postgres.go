package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"table_admin/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// Init opens the process-wide pool. The pool is bounded by DBConfig.MaxConns;
// callers queue on the pool once it is exhausted.
func Init(DBCfg *config.DBConfig) *sql.DB {
	var db *sql.DB
	var err error

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("pgx", DBCfg.DSN())
		if err != nil {
			logrus.Warnf("Failed to open database connection (attempt %d/%d): %v", i+1, maxRetries, err)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		if err = db.Ping(); err != nil {
			logrus.Warnf("Failed to ping database (attempt %d/%d): %v", i+1, maxRetries, err)
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database connection")
			}
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		break
	}

	if err != nil {
		logrus.Fatalf("Failed to connect to database after %d attempts: %v", maxRetries, err)
	}

	Configure(db, DBCfg)

	logrus.WithField("max_conns", DBCfg.MaxConns).Info("Database connection established successfully")
	return db
}

// Configure applies the fixed pool size.
func Configure(db *sql.DB, DBCfg *config.DBConfig) {
	db.SetMaxOpenConns(DBCfg.MaxConns)
	db.SetMaxIdleConns(DBCfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
}

const usersTableDDL = `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

const auditLogTableDDL = `
	CREATE TABLE IF NOT EXISTS audit_log (
		id SERIAL PRIMARY KEY,
		action VARCHAR(32) NOT NULL,
		table_name VARCHAR(63) NOT NULL,
		row_id BIGINT,
		username VARCHAR(255),
		user_id INTEGER,
		occurred_at TIMESTAMP NOT NULL
	)
`

// EnsureSchema creates the tables the service itself owns.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, usersTableDDL); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	if _, err := db.ExecContext(ctx, auditLogTableDDL); err != nil {
		return fmt.Errorf("failed to create audit_log table: %w", err)
	}
	return nil
}
