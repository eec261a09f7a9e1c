package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db        *sql.DB
	events    *SQLiteEventRepository
	snapshots *SQLiteSnapshotRepository
}

// OpenSQLite opens (or creates) the database at dbPath and returns a Store.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := InitSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{
		db:        db,
		events:    NewSQLiteEventRepository(db),
		snapshots: NewSQLiteSnapshotRepository(db),
	}, nil
}

func (s *SQLiteStore) Events() EventRepository       { return s.events }
func (s *SQLiteStore) Snapshots() SnapshotRepository { return s.snapshots }
func (s *SQLiteStore) Close() error                  { return s.db.Close() }

// InitSQLite initializes the local SQLite database and creates the schemas
// for the game clock, athlete snapshots and the immutable event log.
func InitSQLite(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer; the event log drains from a single goroutine anyway.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(ctx context.Context, db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS game_state (
			game_id TEXT PRIMARY KEY,
			current_day INTEGER NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS athletes (
			game_id TEXT NOT NULL,
			athlete_id TEXT NOT NULL,
			name TEXT,
			game_day INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			last_updated DATETIME NOT NULL,
			PRIMARY KEY (game_id, athlete_id)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			athlete_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			game_day INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_game_id ON events(game_id, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_events_athlete_id ON events(athlete_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_game_day ON events(game_day);`,
	}

	for _, query := range schemas {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}
