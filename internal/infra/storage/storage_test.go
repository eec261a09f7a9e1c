package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/events"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "kairo.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func journal(t *testing.T, repo EventRepository, gameID string, list ...events.GameEvent) {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, e := range list {
		e.ID = events.NewEventID()
		e.Seq = int64(i + 1)
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		rec, err := ToRecord(gameID, e)
		if err != nil {
			t.Fatalf("ToRecord failed: %v", err)
		}
		if err := repo.Append(context.Background(), rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
}

func TestEventRepositoryQueries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	journal(t, store.Events(), "g1",
		events.GameEvent{Type: events.EventTypeTrainingCompleted, AthleteID: "kai", GameDay: 1,
			Payload: engine.TrainingPayload{Drill: athlete.ShootingPractice, Intensity: 0.8}},
		events.GameEvent{Type: events.EventTypeTrainingCompleted, AthleteID: "ren", GameDay: 1},
		events.GameEvent{Type: events.EventTypeDayAdvanced, AthleteID: "kai", GameDay: 2},
	)
	journal(t, store.Events(), "g2",
		events.GameEvent{Type: events.EventTypeAgedUp, AthleteID: "kai", GameDay: 1},
	)

	all, err := store.Events().GetByGameID(ctx, "g1")
	if err != nil {
		t.Fatalf("GetByGameID failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 events in g1, got %d", len(all))
	}
	if all[0].Payload["drill"] != "SHOOTING_PRACTICE" || all[0].Payload["intensity"] != 0.8 {
		t.Errorf("Payload did not survive the round trip: %v", all[0].Payload)
	}

	kai, _ := store.Events().GetByAthlete(ctx, "g1", "kai")
	if len(kai) != 2 || kai[1].EventType != "DAY_ADVANCED" {
		t.Errorf("Expected 2 ordered events for kai, got %+v", kai)
	}
	day1, _ := store.Events().GetByGameDay(ctx, "g1", 1)
	if len(day1) != 2 {
		t.Errorf("Expected 2 events on day 1, got %d", len(day1))
	}
	aged, _ := store.Events().GetByEventType(ctx, "g2", "AGED_UP")
	if len(aged) != 1 {
		t.Errorf("Expected 1 AGED_UP in g2, got %d", len(aged))
	}
}

func TestPersisterWritesJournalEvents(t *testing.T) {
	store := openTestStore(t)
	log := events.NewEventLog(NewPersister(store.Events(), "season"), 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		log.Run(ctx)
		close(done)
	}()

	log.Append(events.GameEvent{Type: events.EventTypeMoraleChanged, AthleteID: "kai", GameDay: 3,
		Payload: engine.MoralePayload{Event: athlete.EventWin, Delta: 5, Value: 55}})
	cancel()
	<-done

	got, err := store.Events().GetByAthlete(context.Background(), "season", "kai")
	if err != nil {
		t.Fatalf("GetByAthlete failed: %v", err)
	}
	if len(got) != 1 || got[0].Payload["value"] != 55.0 {
		t.Fatalf("Expected the morale event to be flushed, got %+v", got)
	}
}

func TestSnapshotRepository(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	repo := store.Snapshots()

	if _, err := repo.Get(ctx, "g", "kai"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	snap := engine.Snapshot{
		Athlete:    *athlete.NewAthlete("kai", "Kai"),
		Day:        4,
		Age:        20,
		Attributes: athlete.Attributes{Shooting: 41.5},
		Injuries: []athlete.Injury{{
			Type: athlete.MinorStrain, Location: athlete.Ankle, Severity: 55, RecoveryDaysRemaining: 3.5,
		}},
		ChronicHealed: 1,
		Morale:        athlete.MoraleRecord{Value: 62, State: athlete.MoraleGood},
	}
	if err := repo.Upsert(ctx, "g", snap); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	snap.Day = 5
	if err := repo.Upsert(ctx, "g", snap); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := repo.Get(ctx, "g", "kai")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Day != 5 || got.Attributes.Shooting != 41.5 || got.ChronicHealed != 1 {
		t.Errorf("Unexpected snapshot %+v", got)
	}
	if len(got.Injuries) != 1 || got.Injuries[0].RecoveryDaysRemaining != 3.5 {
		t.Errorf("Expected injury to survive, got %+v", got.Injuries)
	}

	all, _ := repo.GetByGameID(ctx, "g")
	if len(all) != 1 {
		t.Errorf("Expected upsert to keep one row, got %d", len(all))
	}
}

func TestGameDay(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	repo := store.Snapshots()

	if _, err := repo.CurrentDay(ctx, "g"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a new game, got %v", err)
	}
	_ = repo.SaveDay(ctx, "g", 3)
	_ = repo.SaveDay(ctx, "g", 4)
	day, err := repo.CurrentDay(ctx, "g")
	if err != nil || day != 4 {
		t.Errorf("Expected day 4, got %d (%v)", day, err)
	}
}

func TestGenerateRecap(t *testing.T) {
	store := openTestStore(t)
	injury := athlete.Injury{Type: athlete.ModerateSprain, Location: athlete.Knee, Severity: 70}

	journal(t, store.Events(), "g",
		events.GameEvent{Type: events.EventTypeTrainingCompleted, AthleteID: "kai", GameDay: 1,
			Payload: engine.TrainingPayload{Drill: athlete.Plyometrics}},
		events.GameEvent{Type: events.EventTypeTrainingCompleted, AthleteID: "kai", GameDay: 2,
			Payload: engine.TrainingPayload{Drill: athlete.Scrimmage}},
		events.GameEvent{Type: events.EventTypeInjurySustained, AthleteID: "kai", GameDay: 2,
			Payload: engine.InjuryPayload{Injury: injury}},
		events.GameEvent{Type: events.EventTypeTrainingBlocked, AthleteID: "kai", GameDay: 2,
			Payload: engine.TrainingPayload{Drill: athlete.Scrimmage}},
		events.GameEvent{Type: events.EventTypeMoraleChanged, AthleteID: "kai", GameDay: 3,
			Payload: engine.MoralePayload{Event: athlete.EventLoss, Delta: -5, Value: 45}},
		events.GameEvent{Type: events.EventTypeDayAdvanced, AthleteID: "kai", GameDay: 3},
		events.GameEvent{Type: events.EventTypeTrainingCompleted, AthleteID: "ren", GameDay: 2},
	)

	recap, err := NewReconstructor(store.Events()).GenerateRecap(context.Background(), "g", "kai", 2)
	if err != nil {
		t.Fatalf("GenerateRecap failed: %v", err)
	}
	if recap.Sessions != 1 || recap.Blocked != 1 || recap.Injuries != 1 {
		t.Errorf("Unexpected counts %+v", recap)
	}
	if recap.MoraleNet != -5 || recap.MoraleValue == nil || *recap.MoraleValue != 45 {
		t.Errorf("Expected morale -5 to 45, got %+v", recap)
	}
	if len(recap.Events) != 4 {
		t.Fatalf("Expected 4 recap lines (day ticks hidden), got %d", len(recap.Events))
	}
	if recap.Events[1].Summary != "Picked up a knee moderate sprain." || recap.Events[1].Impact != "NEGATIVE" {
		t.Errorf("Unexpected injury line %+v", recap.Events[1])
	}
	if recap.Events[3].Impact != "NEGATIVE" {
		t.Errorf("Expected a morale drop to be negative, got %s", recap.Events[3].Impact)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mongo", "", "", 1, 1); err == nil {
		t.Error("Expected an error for an unknown driver")
	}
}
