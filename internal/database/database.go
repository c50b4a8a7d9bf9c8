package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// maxMetadataFieldLen caps each stored metadata value. Workflow JSON can
// reach megabytes; anything beyond this is truncated on insert so one
// upload cannot dominate the database file.
const maxMetadataFieldLen = 100_000

// Store manages all metadata persistence for the gallery.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates a Store backed by the SQLite file at dbPath. The parent
// directory must already exist and be writable; use startup.LoadConfig
// for directory validation before calling this.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode plus a busy timeout prevents "database is locked" errors
	// when an ingest write races a gallery read.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

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

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		date_added TEXT NOT NULL,
		media_type TEXT NOT NULL,
		image_data TEXT NOT NULL DEFAULT '',
		thumbnail_data TEXT NOT NULL DEFAULT '',
		server_path TEXT,
		thumb_x INTEGER NOT NULL DEFAULT 50,
		thumb_y INTEGER NOT NULL DEFAULT 25,
		metadata TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_media_items_date ON media_items(date_added);
	CREATE INDEX IF NOT EXISTS idx_media_items_type ON media_items(media_type);
	CREATE INDEX IF NOT EXISTS idx_media_items_server_path ON media_items(server_path);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpdateDBMetrics exports connection pool gauges.
func (s *Store) UpdateDBMetrics() {
	stats := s.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// recordQuery records metadata store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
