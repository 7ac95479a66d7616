package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"media-vault/internal/logging"
	"media-vault/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all catalog operations for the media vault.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	txStart time.Time // Track transaction start time for metrics
}

// New creates a new Database instance. dbPath must be the full path to the
// database file and its parent directory must already exist and be writable;
// startup.LoadConfig validates this before the call.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode keeps readers unblocked during ingestion writes;
	// busy_timeout prevents "database is locked" errors under load.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Allow multiple readers; SQLite serializes the single writer itself.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Media catalog. contentFingerprint carries a hard uniqueness constraint:
	-- the insert is the race-safe serialization point for concurrent
	-- ingestions of identical content.
	CREATE TABLE IF NOT EXISTS media (
		id                 TEXT PRIMARY KEY NOT NULL,
		contentFingerprint TEXT UNIQUE,
		directoryId        TEXT,
		name               TEXT NOT NULL,
		originalFileName   TEXT,
		ext                TEXT NOT NULL,
		mimeType           TEXT,
		width              INTEGER NOT NULL,
		height             INTEGER NOT NULL,
		size               INTEGER NOT NULL,
		score              INTEGER DEFAULT 0,
		createdAt          INTEGER NOT NULL,
		revisionTime       INTEGER NOT NULL,
		note               TEXT,
		url                TEXT,
		thumbnailUrl       TEXT,
		palettes           TEXT,
		author             TEXT,
		comments           TEXT,
		isDeleted          INTEGER DEFAULT 0,
		usageCount         INTEGER DEFAULT 0,
		perceptualHash     TEXT,
		durationSeconds    REAL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_media_directory ON media(directoryId);
	CREATE INDEX IF NOT EXISTS idx_media_deleted ON media(isDeleted);
	CREATE INDEX IF NOT EXISTS idx_media_created ON media(createdAt);

	-- Directory tree. parentId references directories.id conceptually; the
	-- store stays permissive and the lifecycle layer validates references.
	CREATE TABLE IF NOT EXISTS directories (
		id        TEXT PRIMARY KEY NOT NULL,
		parentId  TEXT,
		name      TEXT NOT NULL,
		createdAt INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_directories_parent ON directories(parentId);

	-- Collaborator tables: schema surface only, no core logic.
	CREATE TABLE IF NOT EXISTS tags (
		id    TEXT PRIMARY KEY NOT NULL,
		name  TEXT NOT NULL UNIQUE COLLATE NOCASE,
		color TEXT
	);

	CREATE TABLE IF NOT EXISTS mediaTags (
		mediaId TEXT NOT NULL,
		tagId   TEXT NOT NULL,
		PRIMARY KEY (mediaId, tagId)
	);

	CREATE TABLE IF NOT EXISTS playbackHistory (
		id                    TEXT PRIMARY KEY NOT NULL,
		mediaId               TEXT NOT NULL,
		playedAt              INTEGER NOT NULL,
		durationPlayedSeconds REAL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// BeginBatch starts a transaction and takes the writer lock for its whole
// lifetime. The cascading directory delete depends on this: no concurrent
// create or move can touch the tree while a subtree is being removed.
// The caller must release the lock by calling EndBatch exactly once.
func (d *Database) BeginBatch() (*sql.Tx, error) {
	d.mu.Lock()
	d.txStart = time.Now()

	// Background context: the transaction lifetime is managed by EndBatch,
	// not a timeout. A deferred cancel here would kill the transaction the
	// moment this function returns.
	tx, err := d.db.BeginTx(context.Background(), nil)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}

	return tx, nil
}

// EndBatch commits or rolls back a transaction started by BeginBatch and
// releases the writer lock. A non-nil err forces a rollback and is returned
// (joined with any rollback failure).
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	defer d.mu.Unlock()

	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// UpdateDBMetrics updates database connection metrics.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// Vacuum optimizes the database.
func (d *Database) Vacuum() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "VACUUM")
	return err
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// violation on the given column (matched by its qualified name in the
// driver's error text, e.g. "media.contentFingerprint").
func isUniqueViolation(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	return column == "" || strings.Contains(sqliteErr.Error(), column)
}
