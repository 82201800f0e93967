package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite has a single writer, and an in-memory database only lives as
	// long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS charges (
			id TEXT PRIMARY KEY,
			created INTEGER NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			source_country TEXT NOT NULL DEFAULT '',
			tax_number TEXT,
			owner_id TEXT,
			owner_name TEXT NOT NULL DEFAULT '',
			owner_email TEXT NOT NULL DEFAULT '',
			owner_country TEXT NOT NULL DEFAULT '',
			amount INTEGER NOT NULL,
			fee INTEGER NOT NULL,
			currency TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_charges_created ON charges(created)`,

		`CREATE TABLE IF NOT EXISTS refunds (
			charge_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			id TEXT NOT NULL DEFAULT '',
			amount INTEGER NOT NULL,
			settlement_amount INTEGER NOT NULL,
			settlement_fee INTEGER NOT NULL,
			settlement_currency TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (charge_id, position),
			FOREIGN KEY (charge_id) REFERENCES charges(id) ON DELETE CASCADE
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
