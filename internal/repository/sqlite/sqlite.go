// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// LAYOUT:
// DB owns the connection pool and the schema. Each table family gets its own small
// repository type that borrows the pool:
//
//	db.Users()     → *UserDB      (repository.UserRepository)
//	db.Questions() → *QuestionDB  (repository.QuestionRepository)
//	db.Answers()   → *AnswerDB    (repository.AnswerRepository)
//	db.Sessions()  → *SessionStore (scs.Store)
//
// Splitting them keeps method names short (Create, GetByID…) without collisions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// The sqlite package's init() registers itself with database/sql as a driver
	// named "sqlite". After this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out the per-table repositories.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/qanda.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (great for tests, lost on close)
//
// IN-MEMORY DATABASES AND THE POOL:
// Every new connection to ":memory:" opens a brand new, empty database. The pool
// is therefore capped at one connection for in-memory use so that all queries see
// the same tables. Callers must not issue a query while iterating another result set.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Answers cascade with their
	// question and likes cascade with their answer, so we need them on.
	// PRAGMAs are per connection: dsn() also sets this one for every pooled
	// connection of a file database.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// Writers wait up to 5s for a lock instead of failing with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
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

// Ping checks that the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// PingContext is Ping with a deadline. Used by the health endpoint.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// dsn adds the per-connection PRAGMAs to a file database path, so that
// connections the pool opens later get them too.
func dsn(dbPath string) string {
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (db *DB) Users() *UserDB         { return &UserDB{conn: db.conn} }
func (db *DB) Questions() *QuestionDB { return &QuestionDB{conn: db.conn} }
func (db *DB) Answers() *AnswerDB     { return &AnswerDB{conn: db.conn} }
func (db *DB) Sessions() *SessionStore {
	return &SessionStore{conn: db.conn}
}

// migrate creates every table the application needs.
//
// CREATE TABLE IF NOT EXISTS is safe to run on every start.
//
// COLLATE NOCASE on email and username makes both the UNIQUE constraint and
// equality lookups case-insensitive, so "Bob@x.io" and "bob@x.io" are one account.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL COLLATE NOCASE UNIQUE,
			username      TEXT NOT NULL COLLATE NOCASE UNIQUE,
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			is_active     INTEGER NOT NULL DEFAULT 1,
			date_joined   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at);
		CREATE INDEX IF NOT EXISTS idx_questions_author_id ON questions(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating questions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS answers (
			id          TEXT PRIMARY KEY,
			content     TEXT NOT NULL,
			question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			author_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at  DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating answers table: %w", err)
	}

	// The composite primary key is what makes likes a set: a second INSERT for
	// the same (answer, user) pair is ignored rather than duplicated.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS answer_likes (
			answer_id  TEXT NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (answer_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating answer_likes table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token  TEXT PRIMARY KEY,
			data   BLOB NOT NULL,
			expiry DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expiry);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
