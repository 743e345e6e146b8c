package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"musiccatalog/internal/config"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// driverName is the sqlite3 driver with the catalog's SQL functions
// registered on every connection.
const driverName = "sqlite3_catalog"

const dsnParams = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// SQLite's LOWER only folds ASCII.
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

// ErrNotFound is returned by single-row lookups that match nothing
var ErrNotFound = errors.New("record not found")

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every repository operation. It runs either directly on the
// connection pool or inside a transaction opened by Database.InTx.
type Queries struct {
	q       querier
	logger  *logrus.Logger
	echoSQL bool
}

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the catalog store. It is safe for concurrent use because
// the underlying *sql.DB is concurrency-safe; every call (including the
// background transcoder's) checks out its own connection.
type Database struct {
	*Queries
	conn   *sql.DB
	logger *logrus.Logger
}

// NewDatabase opens (or creates) a SQLite database at the configured path and
// ensures all required tables and indices exist. Foreign keys are enabled on
// every pooled connection so item deletion cascades. Caller should Close() it
// when finished.
func NewDatabase(cfg config.DatabaseConfig, logger *logrus.Logger) (*Database, error) {
	conn, err := sql.Open(driverName, buildDSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns < 1 {
		maxConns = 1
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		Queries: &Queries{q: conn, logger: logger, echoSQL: cfg.EchoSQL},
		conn:    conn,
		logger:  logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.WithField("db_path", cfg.Path).Info("Database initialized successfully")
	return db, nil
}

// buildDSN appends the connection parameters to path, which may already
// carry a query string of its own.
func buildDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + dsnParams
	}
	return path + "?" + dsnParams
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations. This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'USER'
		);`,
		`CREATE TABLE IF NOT EXISTS artists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS genres (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS music_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			item_type TEXT NOT NULL DEFAULT 'TRACK',
			release_year INTEGER,
			duration_seconds INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS music_item_artists (
			music_item_id INTEGER NOT NULL,
			artist_id INTEGER NOT NULL,
			role TEXT NOT NULL DEFAULT 'PRIMARY',
			FOREIGN KEY (music_item_id) REFERENCES music_items(id) ON DELETE CASCADE,
			FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE,
			PRIMARY KEY (music_item_id, artist_id, role)
		);`,
		`CREATE TABLE IF NOT EXISTS music_item_genres (
			music_item_id INTEGER NOT NULL,
			genre_id INTEGER NOT NULL,
			FOREIGN KEY (music_item_id) REFERENCES music_items(id) ON DELETE CASCADE,
			FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE,
			PRIMARY KEY (music_item_id, genre_id)
		);`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			music_item_id INTEGER NOT NULL,
			rating INTEGER,
			text TEXT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (music_item_id) REFERENCES music_items(id) ON DELETE CASCADE,
			CONSTRAINT uq_review_user_item UNIQUE (user_id, music_item_id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_collections (
			user_id INTEGER NOT NULL,
			music_item_id INTEGER NOT NULL,
			preference TEXT NOT NULL DEFAULT 'NONE',
			is_favourite BOOLEAN NOT NULL DEFAULT FALSE,
			note TEXT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (music_item_id) REFERENCES music_items(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, music_item_id)
		);`,
		// Keyed by position so the same track may repeat within one album.
		`CREATE TABLE IF NOT EXISTS album_tracks (
			album_id INTEGER NOT NULL,
			track_id INTEGER NOT NULL,
			track_number INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (album_id) REFERENCES music_items(id) ON DELETE CASCADE,
			FOREIGN KEY (track_id) REFERENCES music_items(id) ON DELETE CASCADE,
			PRIMARY KEY (album_id, track_number)
		);`,
		`CREATE TABLE IF NOT EXISTS track_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			track_id INTEGER NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			content_type TEXT,
			file_data BLOB NOT NULL,
			compressed BOOLEAN NOT NULL DEFAULT TRUE,
			original_size INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (track_id) REFERENCES music_items(id) ON DELETE CASCADE
		);`,
	}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_artists_name ON artists(name);",
		"CREATE INDEX IF NOT EXISTS idx_music_items_title ON music_items(title);",
		"CREATE INDEX IF NOT EXISTS idx_music_item_artists_artist ON music_item_artists(artist_id);",
		"CREATE INDEX IF NOT EXISTS idx_music_item_genres_genre ON music_item_genres(genre_id);",
		"CREATE INDEX IF NOT EXISTS idx_reviews_item ON reviews(music_item_id);",
		"CREATE INDEX IF NOT EXISTS idx_album_tracks_track ON album_tracks(track_id);",
	}

	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return db.runMigrations()
}

// runMigrations performs incremental schema updates in-place. Each migration
// should be idempotent and safe to re-run; keep them lightweight.
func (db *Database) runMigrations() error {
	// Migration 1: databases created before attachments tracked their
	// pre-transcode size lack original_size.
	var columnExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('track_files')
		WHERE name = 'original_size'`).Scan(&columnExists)
	if err != nil {
		return err
	}

	if !columnExists {
		if _, err := db.conn.Exec("ALTER TABLE track_files ADD COLUMN original_size INTEGER"); err != nil {
			return err
		}
		db.logger.Info("Added original_size column to track_files table")
	}

	return nil
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise, so an item and its associations land together
// or not at all.
func (db *Database) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	q := &Queries{q: tx, logger: db.logger, echoSQL: db.Queries.echoSQL}
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies the store is reachable
func (db *Database) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q.echo(query, args)
	return q.q.ExecContext(ctx, query, args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	q.echo(query, args)
	return q.q.QueryContext(ctx, query, args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	q.echo(query, args)
	return q.q.QueryRowContext(ctx, query, args...)
}

func (q *Queries) echo(query string, args []any) {
	if !q.echoSQL {
		return
	}
	q.logger.WithFields(logrus.Fields{
		"sql":  query,
		"args": args,
	}).Debug("SQL")
}

// inClause renders "?, ?, ?" and the matching argument list
func inClause(ids []int64) (string, []any) {
	placeholders := make([]byte, 0, len(ids)*3)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ", "...)
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	return string(placeholders), args
}

// uniqueIDs drops duplicates while keeping first-seen order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
