// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without a C toolchain. All access goes through database/sql.
//
// DB owns the connection pool and the schema. The per-entity stores (Users,
// Categories, Genres, Titles, Reviews, Comments) are thin views over it, each
// implementing one repository interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and brings the schema up to date.
//
// dbPath examples:
//   - "data/yamdb.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests)
//
// PRAGMAS GO IN THE DSN:
// database/sql hands out pooled connections, and a PRAGMA executed with Exec
// only reaches whichever connection ran it. The driver's _pragma parameter is
// applied to every connection it opens, so foreign keys are on everywhere.
func New(dbPath string) (*DB, error) {
	memory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")

	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	if !memory {
		// WAL lets readers proceed while a write is in progress.
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dsn := dbPath + sep + strings.Join(params, "&")

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database.
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newFromConn wraps an existing pool without migrating. Tests use it with
// go-sqlmock to drive driver failures.
func newFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

func (db *DB) Users() *UserDB { return &UserDB{db: db} }
func (db *DB) Categories() *TermDB { return &TermDB{db: db, table: "categories", resource: "category"} }
func (db *DB) Genres() *TermDB { return &TermDB{db: db, table: "genres", resource: "genre"} }
func (db *DB) Titles() *TitleDB { return &TitleDB{db: db} }
func (db *DB) Reviews() *ReviewDB { return &ReviewDB{db: db} }
func (db *DB) Comments() *CommentDB { return &CommentDB{db: db} }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, committing when fn returns nil.
//
// fn must use tx for every statement. With a single-connection pool (the
// in-memory case) a query on db.conn would wait forever for the connection
// the transaction is holding.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. Every statement is idempotent.
//
// Constraints carry the data rules the application also checks, so a bypassed
// or racing check still cannot store bad data:
//   - UNIQUE(author_id, title_id) on reviews: one review per author per title
//   - CHECK(score BETWEEN 1 AND 10)
//   - ON DELETE CASCADE from titles/users/reviews to their dependents
//   - ON DELETE SET NULL from categories to titles
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                      INTEGER PRIMARY KEY AUTOINCREMENT,
			username                TEXT NOT NULL UNIQUE,
			email                   TEXT NOT NULL UNIQUE,
			first_name              TEXT NOT NULL DEFAULT '',
			last_name               TEXT NOT NULL DEFAULT '',
			bio                     TEXT NOT NULL DEFAULT '',
			role                    TEXT NOT NULL DEFAULT 'user'
			                        CHECK (role IN ('user', 'moderator', 'admin')),
			is_superuser            INTEGER NOT NULL DEFAULT 0,
			confirmation_code_hash  TEXT NOT NULL DEFAULT '',
			confirmation_expires_at DATETIME,
			date_joined             DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	for _, table := range []string{"categories", "genres"} {
		_, err = db.conn.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id   INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				slug TEXT NOT NULL UNIQUE
			);
		`, table))
		if err != nil {
			return fmt.Errorf("creating %s table: %w", table, err)
		}
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS titles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			year        INTEGER NOT NULL,
			description TEXT,
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
		);
		CREATE INDEX IF NOT EXISTS idx_titles_category_id ON titles(category_id);
		CREATE INDEX IF NOT EXISTS idx_titles_year ON titles(year);

		CREATE TABLE IF NOT EXISTS genre_title (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			genre_id INTEGER REFERENCES genres(id) ON DELETE CASCADE,
			UNIQUE (title_id, genre_id)
		);
		CREATE INDEX IF NOT EXISTS idx_genre_title_genre_id ON genre_title(genre_id);
	`)
	if err != nil {
		return fmt.Errorf("creating titles tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			title_id  INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text      TEXT NOT NULL,
			score     INTEGER NOT NULL DEFAULT 10 CHECK (score BETWEEN 1 AND 10),
			pub_date  DATETIME NOT NULL,
			CONSTRAINT title_review UNIQUE (author_id, title_id)
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_title_id ON reviews(title_id, pub_date);

		CREATE TABLE IF NOT EXISTS comments (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text      TEXT NOT NULL,
			pub_date  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_review_id ON comments(review_id, pub_date);
	`)
	if err != nil {
		return fmt.Errorf("creating reviews tables: %w", err)
	}

	return nil
}
