package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/engine"
)

const sqliteEventColumns = `id, game_id, seq, timestamp, event_type, athlete_id, payload, game_day`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event EventRecord) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO events (` + sqliteEventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.GameID, event.Seq, event.Timestamp.UTC(), event.EventType,
		event.AthleteID, string(payloadBytes), event.GameDay,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, where string, args ...interface{}) ([]EventRecord, error) {
	query := `SELECT ` + sqliteEventColumns + ` FROM events WHERE ` + where + ` ORDER BY timestamp ASC, seq ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *SQLiteEventRepository) GetByGameID(ctx context.Context, gameID string) ([]EventRecord, error) {
	return r.getMany(ctx, `game_id = ?`, gameID)
}

func (r *SQLiteEventRepository) GetByAthlete(ctx context.Context, gameID, athleteID string) ([]EventRecord, error) {
	return r.getMany(ctx, `game_id = ? AND athlete_id = ?`, gameID, athleteID)
}

func (r *SQLiteEventRepository) GetByGameDay(ctx context.Context, gameID string, day int) ([]EventRecord, error) {
	return r.getMany(ctx, `game_id = ? AND game_day = ?`, gameID, day)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, gameID string, eventType string) ([]EventRecord, error) {
	return r.getMany(ctx, `game_id = ? AND event_type = ?`, gameID, eventType)
}

// scanEvents reads rows selected with the shared event column order.
func scanEvents(rows *sql.Rows) ([]EventRecord, error) {
	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var payload []byte
		err := rows.Scan(
			&e.ID, &e.GameID, &e.Seq, &e.Timestamp, &e.EventType,
			&e.AthleteID, &payload, &e.GameDay,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) Upsert(ctx context.Context, gameID string, snapshot engine.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	query := `
		INSERT INTO athletes (game_id, athlete_id, name, game_day, snapshot, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, athlete_id) DO UPDATE SET
			name=excluded.name,
			game_day=excluded.game_day,
			snapshot=excluded.snapshot,
			last_updated=excluded.last_updated
	`
	_, err = r.db.ExecContext(ctx, query,
		gameID, snapshot.Athlete.ID, snapshot.Athlete.Name, snapshot.Day, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteSnapshotRepository) Get(ctx context.Context, gameID, athleteID string) (*engine.Snapshot, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT snapshot FROM athletes WHERE game_id = ? AND athlete_id = ?`, gameID, athleteID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("athlete %s: %w", athleteID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (r *SQLiteSnapshotRepository) GetByGameID(ctx context.Context, gameID string) ([]engine.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT snapshot FROM athletes WHERE game_id = ? ORDER BY athlete_id ASC`, gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func (r *SQLiteSnapshotRepository) SaveDay(ctx context.Context, gameID string, day int) error {
	query := `
		INSERT INTO game_state (game_id, current_day, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET current_day=excluded.current_day, last_updated=excluded.last_updated
	`
	if _, err := r.db.ExecContext(ctx, query, gameID, day, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save game day: %w", err)
	}
	return nil
}

func (r *SQLiteSnapshotRepository) CurrentDay(ctx context.Context, gameID string) (int, error) {
	var day int
	err := r.db.QueryRowContext(ctx, `SELECT current_day FROM game_state WHERE game_id = ?`, gameID).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load game day: %w", err)
	}
	return day, nil
}

func decodeSnapshot(data []byte) (*engine.Snapshot, error) {
	var s engine.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &s, nil
}

func scanSnapshots(rows *sql.Rows) ([]engine.Snapshot, error) {
	var snaps []engine.Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s, err := decodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *s)
	}
	return snaps, rows.Err()
}

var (
	_ EventRepository    = (*SQLiteEventRepository)(nil)
	_ SnapshotRepository = (*SQLiteSnapshotRepository)(nil)
)
