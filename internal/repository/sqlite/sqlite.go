// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code, so no C compiler is needed.
//
// LAYOUT:
// DB owns the connection pool and the schema. Each aggregate gets a small
// store type that shares the pool and implements one repository interface:
//
//	db.Users()    → *UserDB    (repository.UserRepository)
//	db.Profiles() → *ProfileDB (repository.ProfileRepository)
//	db.Posts()    → *PostDB    (repository.PostRepository)
//	db.Comments() → *CommentDB (repository.CommentRepository)
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out per-aggregate stores.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/blog.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database,
	// so the in-memory variant is pinned to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode allows concurrent reads while a write is
	// happening. In-memory databases silently stay in "memory" mode.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The DSN turns them on for every
	// new pooled connection; this covers the one we already hold.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newFromConn wraps an existing pool without touching the schema.
// Tests use it with go-sqlmock to simulate driver failures.
func newFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// dsn appends connection-level pragmas so that every connection the pool opens
// enforces foreign keys and waits on a locked database instead of failing fast.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Conn exposes the connection pool for pool statistics.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Users() *UserDB       { return &UserDB{conn: db.conn} }
func (db *DB) Profiles() *ProfileDB { return &ProfileDB{conn: db.conn} }
func (db *DB) Posts() *PostDB       { return &PostDB{conn: db.conn} }
func (db *DB) Comments() *CommentDB { return &CommentDB{conn: db.conn} }

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS keeps this idempotent, so it runs on every start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL DEFAULT '',
				github_id     INTEGER UNIQUE,
				email         TEXT NOT NULL DEFAULT '',
				avatar_url    TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"profiles", `
			CREATE TABLE IF NOT EXISTS profiles (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		// A profile never subscribes to itself; the CHECK backs up the service rule.
		{"subscriptions", `
			CREATE TABLE IF NOT EXISTS subscriptions (
				subscriber_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
				target_id     TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (subscriber_id, target_id),
				CHECK (subscriber_id <> target_id)
			);
			CREATE INDEX IF NOT EXISTS idx_subscriptions_target ON subscriptions(target_id);`},
		{"posts", `
			CREATE TABLE IF NOT EXISTS posts (
				id         TEXT PRIMARY KEY,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title      TEXT NOT NULL,
				content    TEXT NOT NULL,
				public     INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_posts_public_created ON posts(public, created_at);
			CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts(author_id, created_at);`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id         TEXT PRIMARY KEY,
				post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				content    TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id, created_at);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// limitOffset turns ListOptions into LIMIT/OFFSET arguments.
// SQLite treats a negative LIMIT as "no limit".
func limitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// isUniqueViolation reports whether err came from a UNIQUE constraint on column
// (formatted "table.column"). SQLite reports these only as message text.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, strings.ToLower(column))
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
