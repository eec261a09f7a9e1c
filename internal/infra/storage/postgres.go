// Package storage - postgres.go
// PostgreSQL implementation of Store for shared deployments.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/MRamiBalles/kairo-condition/internal/engine"
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db        *sql.DB
	events    *PostgresEventRepository
	snapshots *PostgresSnapshotRepository
}

// OpenPostgres connects, applies the schema and returns a Store.
func OpenPostgres(dsn string, maxOpen, maxIdle int) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	for _, query := range postgresSchemas {
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schemas: %w", err)
		}
	}

	return &PostgresStore{
		db:        db,
		events:    NewPostgresEventRepository(db),
		snapshots: NewPostgresSnapshotRepository(db),
	}, nil
}

func (s *PostgresStore) Events() EventRepository       { return s.events }
func (s *PostgresStore) Snapshots() SnapshotRepository { return s.snapshots }
func (s *PostgresStore) Close() error                  { return s.db.Close() }

var postgresSchemas = []string{
	`CREATE TABLE IF NOT EXISTS game_state (
		game_id TEXT PRIMARY KEY,
		current_day INTEGER NOT NULL DEFAULT 0,
		last_updated TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS athletes (
		game_id TEXT NOT NULL,
		athlete_id TEXT NOT NULL,
		name TEXT,
		game_day INTEGER NOT NULL,
		snapshot JSONB NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (game_id, athlete_id)
	)`,
	`CREATE TABLE IF NOT EXISTS event_log (
		id UUID PRIMARY KEY,
		game_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		event_type TEXT NOT NULL,
		athlete_id TEXT NOT NULL,
		payload JSONB NOT NULL,
		game_day INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_game ON event_log(game_id, timestamp, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_athlete ON event_log(game_id, athlete_id)`,
}

const postgresEventColumns = `id, game_id, seq, timestamp, event_type, athlete_id, payload, game_day`

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// Append inserts a new event into the immutable ledger.
func (r *PostgresEventRepository) Append(ctx context.Context, event EventRecord) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO event_log (` + postgresEventColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.GameID,
		event.Seq,
		event.Timestamp,
		event.EventType,
		event.AthleteID,
		payloadJSON,
		event.GameDay,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// GetByGameID retrieves all events for a game.
func (r *PostgresEventRepository) GetByGameID(ctx context.Context, gameID string) ([]EventRecord, error) {
	return r.queryEvents(ctx, `game_id = $1`, gameID)
}

// GetByAthlete retrieves all events about one athlete.
func (r *PostgresEventRepository) GetByAthlete(ctx context.Context, gameID, athleteID string) ([]EventRecord, error) {
	return r.queryEvents(ctx, `game_id = $1 AND athlete_id = $2`, gameID, athleteID)
}

// GetByGameDay retrieves all events from a specific in-game day.
func (r *PostgresEventRepository) GetByGameDay(ctx context.Context, gameID string, day int) ([]EventRecord, error) {
	return r.queryEvents(ctx, `game_id = $1 AND game_day = $2`, gameID, day)
}

// GetByEventType retrieves all events of a specific type.
func (r *PostgresEventRepository) GetByEventType(ctx context.Context, gameID string, eventType string) ([]EventRecord, error) {
	return r.queryEvents(ctx, `game_id = $1 AND event_type = $2`, gameID, eventType)
}

func (r *PostgresEventRepository) queryEvents(ctx context.Context, where string, args ...interface{}) ([]EventRecord, error) {
	query := `SELECT ` + postgresEventColumns + ` FROM event_log WHERE ` + where + ` ORDER BY timestamp ASC, seq ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// PostgresSnapshotRepository implements SnapshotRepository using PostgreSQL.
type PostgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

func (r *PostgresSnapshotRepository) Upsert(ctx context.Context, gameID string, snapshot engine.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	query := `
		INSERT INTO athletes (game_id, athlete_id, name, game_day, snapshot, last_updated)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (game_id, athlete_id) DO UPDATE SET
			name = EXCLUDED.name,
			game_day = EXCLUDED.game_day,
			snapshot = EXCLUDED.snapshot,
			last_updated = EXCLUDED.last_updated
	`
	if _, err := r.db.ExecContext(ctx, query, gameID, snapshot.Athlete.ID, snapshot.Athlete.Name, snapshot.Day, data); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (r *PostgresSnapshotRepository) Get(ctx context.Context, gameID, athleteID string) (*engine.Snapshot, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT snapshot FROM athletes WHERE game_id = $1 AND athlete_id = $2`, gameID, athleteID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("athlete %s: %w", athleteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (r *PostgresSnapshotRepository) GetByGameID(ctx context.Context, gameID string) ([]engine.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT snapshot FROM athletes WHERE game_id = $1 ORDER BY athlete_id ASC`, gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func (r *PostgresSnapshotRepository) SaveDay(ctx context.Context, gameID string, day int) error {
	query := `
		INSERT INTO game_state (game_id, current_day, last_updated) VALUES ($1, $2, NOW())
		ON CONFLICT (game_id) DO UPDATE SET current_day = EXCLUDED.current_day, last_updated = EXCLUDED.last_updated
	`
	if _, err := r.db.ExecContext(ctx, query, gameID, day); err != nil {
		return fmt.Errorf("failed to save game day: %w", err)
	}
	return nil
}

func (r *PostgresSnapshotRepository) CurrentDay(ctx context.Context, gameID string) (int, error) {
	var day int
	err := r.db.QueryRowContext(ctx, `SELECT current_day FROM game_state WHERE game_id = $1`, gameID).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load game day: %w", err)
	}
	return day, nil
}

var (
	_ EventRepository    = (*PostgresEventRepository)(nil)
	_ SnapshotRepository = (*PostgresSnapshotRepository)(nil)
	_ Store              = (*PostgresStore)(nil)
	_ Store              = (*SQLiteStore)(nil)
)
