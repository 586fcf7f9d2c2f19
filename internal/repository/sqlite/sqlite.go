// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. Connection settings are passed as DSN query parameters so
// that every pooled connection gets them, not just the first one:
//
//   - foreign_keys(1)   enforces ON DELETE CASCADE for relation rows
//   - busy_timeout      waits for a competing writer instead of failing with SQLITE_BUSY
//   - _txlock=immediate takes the write lock at BEGIN, serialising writers
//
// WHY _txlock=immediate?
// A plain BEGIN is DEFERRED: the transaction starts as a reader and only
// asks for the write lock at its first INSERT or UPDATE. Two such
// transactions that both read and then write can deadlock, and SQLite
// resolves that by failing one with SQLITE_BUSY immediately, without
// honouring busy_timeout. BEGIN IMMEDIATE takes the write lock up front,
// so a second writer simply waits (up to busy_timeout) and then runs.
// Recipe create and update are read-check-write transactions, which is
// exactly the pattern that needs this.
//
// Readers in WAL mode see the last committed snapshot, so the delete-then-insert
// replacement of a recipe's associations is never observable half-done.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/foodgram.db" → file-based database
//   - ":memory:"         → in-memory database (tests)
//
// An in-memory database exists per connection, so the pool is pinned to a
// single connection in that case.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// withTx runs fn inside a transaction. Any error from fn rolls the whole
// transaction back; fn must do all of its work through tx.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint
// failure, i.e. a referenced row does not exist.
func isForeignKeyViolation(err error) bool {
	var se *sqlitedriver.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

// migrate creates all tables. Statements are idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			username      TEXT NOT NULL UNIQUE,
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			avatar        TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS ingredients (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			name             TEXT NOT NULL,
			measurement_unit TEXT NOT NULL,
			search_name      TEXT NOT NULL,
			UNIQUE (name, measurement_unit)
		);
		CREATE INDEX IF NOT EXISTS idx_ingredients_search_name ON ingredients(search_name);
	`)
	if err != nil {
		return fmt.Errorf("creating catalog tables: %w", err)
	}

	// short_code is NULL until allocated; UNIQUE ignores NULLs.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS recipes (
			id           TEXT PRIMARY KEY,
			author_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name         TEXT NOT NULL,
			text         TEXT NOT NULL,
			image        TEXT NOT NULL DEFAULT '',
			cooking_time INTEGER NOT NULL CHECK (cooking_time >= 1),
			short_code   TEXT UNIQUE,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_recipes_created_at ON recipes(created_at);
		CREATE INDEX IF NOT EXISTS idx_recipes_author_id ON recipes(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating recipes table: %w", err)
	}

	// position keeps associations in submission order.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS recipe_tags (
			recipe_id TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
			tag_id    INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			position  INTEGER NOT NULL,
			PRIMARY KEY (recipe_id, tag_id)
		);
		CREATE TABLE IF NOT EXISTS recipe_ingredients (
			recipe_id     TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
			ingredient_id INTEGER NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
			amount        INTEGER NOT NULL CHECK (amount >= 1),
			position      INTEGER NOT NULL,
			PRIMARY KEY (recipe_id, ingredient_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating recipe relation tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS recipe_relations (
			kind       TEXT NOT NULL CHECK (kind IN ('favorite', 'cart')),
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			recipe_id  TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (kind, user_id, recipe_id)
		);
		CREATE TABLE IF NOT EXISTS subscriptions (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, author_id),
			CHECK (user_id <> author_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating user relation tables: %w", err)
	}

	return nil
}
