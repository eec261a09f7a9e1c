// Package storage provides the persistence layer for the condition server.
// This package implements the repository pattern to keep the engine pure.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/events"
)

// ErrNotFound is returned when a snapshot or game row does not exist.
var ErrNotFound = errors.New("not found")

// EventRecord mirrors events.GameEvent for persistence.
// The engine does NOT import this; it sees only events.EventPersister.
type EventRecord struct {
	ID        string                 `json:"id" db:"id"`
	GameID    string                 `json:"game_id" db:"game_id"`
	Seq       int64                  `json:"seq" db:"seq"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	AthleteID string                 `json:"athlete_id" db:"athlete_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	GameDay   int                    `json:"game_day" db:"game_day"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event EventRecord) error

	// GetByGameID retrieves all events for a game in sequence order.
	GetByGameID(ctx context.Context, gameID string) ([]EventRecord, error)

	// GetByAthlete retrieves all events about one athlete.
	GetByAthlete(ctx context.Context, gameID, athleteID string) ([]EventRecord, error)

	// GetByGameDay retrieves all events from a specific in-game day.
	GetByGameDay(ctx context.Context, gameID string, day int) ([]EventRecord, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, gameID string, eventType string) ([]EventRecord, error)
}

// SnapshotRepository stores the latest state of every athlete and the game clock.
type SnapshotRepository interface {
	// Upsert updates or inserts an athlete snapshot.
	Upsert(ctx context.Context, gameID string, snapshot engine.Snapshot) error

	// Get retrieves one athlete. Returns ErrNotFound when missing.
	Get(ctx context.Context, gameID, athleteID string) (*engine.Snapshot, error)

	// GetByGameID retrieves all snapshots for a game ordered by athlete id.
	GetByGameID(ctx context.Context, gameID string) ([]engine.Snapshot, error)

	// SaveDay records the current game day.
	SaveDay(ctx context.Context, gameID string, day int) error

	// CurrentDay returns the saved game day. Returns ErrNotFound for a new game.
	CurrentDay(ctx context.Context, gameID string) (int, error)
}

// Store bundles both repositories over one connection.
type Store interface {
	Events() EventRepository
	Snapshots() SnapshotRepository
	Close() error
}

// ToRecord converts a journal event into its persisted form.
func ToRecord(gameID string, e events.GameEvent) (EventRecord, error) {
	payload, err := payloadMap(e.Payload)
	if err != nil {
		return EventRecord{}, err
	}
	return EventRecord{
		ID:        e.ID,
		GameID:    gameID,
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		AthleteID: e.AthleteID,
		Payload:   payload,
		GameDay:   e.GameDay,
	}, nil
}

func payloadMap(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return m, nil
}

// Persister adapts an EventRepository to events.EventPersister.
type Persister struct {
	repo    EventRepository
	gameID  string
	timeout time.Duration
}

// NewPersister binds a repository to one game.
func NewPersister(repo EventRepository, gameID string) *Persister {
	return &Persister{repo: repo, gameID: gameID, timeout: 5 * time.Second}
}

// Append implements events.EventPersister.
func (p *Persister) Append(e events.GameEvent) error {
	rec, err := ToRecord(p.gameID, e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, rec)
}

var _ events.EventPersister = (*Persister)(nil)

// Open returns the Store selected by driver: "sqlite" (file at path),
// "memory" (private in-memory sqlite) or "postgres" (dsn).
func Open(driver, path, dsn string, maxOpen, maxIdle int) (Store, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(path)
	case "memory":
		return OpenSQLite(":memory:")
	case "postgres":
		return OpenPostgres(dsn, maxOpen, maxIdle)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
