package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memPersister struct {
	mu     sync.Mutex
	events []GameEvent
}

func (m *memPersister) Append(e GameEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memPersister) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestAppendAssignsIdentity(t *testing.T) {
	el := NewMemoryLog()

	first := el.Append(GameEvent{Type: EventTypeTrainingCompleted, AthleteID: "P1", GameDay: 1})
	second := el.Append(GameEvent{Type: EventTypeDayAdvanced, AthleteID: "P1", GameDay: 2})

	if first.ID == "" || first.ID == second.ID {
		t.Errorf("Expected distinct ids, got %q and %q", first.ID, second.ID)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("Expected seq 1,2 got %d,%d", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
	if got := el.Since(1); len(got) != 1 || got[0].Type != EventTypeDayAdvanced {
		t.Errorf("Since(1) = %+v", got)
	}
	if got := el.GetByDay(1); len(got) != 1 {
		t.Errorf("Expected 1 event on day 1, got %d", len(got))
	}
}

func TestReplayIsACopy(t *testing.T) {
	el := NewMemoryLog()
	el.Append(GameEvent{Type: EventTypeAgedUp, AthleteID: "P1"})

	history := el.Replay()
	history[0].AthleteID = "HACKED"

	if len(el.GetByAthlete("P1")) != 1 {
		t.Error("Replay exposed internal storage")
	}
}

func TestRunDrainsToPersister(t *testing.T) {
	p := &memPersister{}
	el := NewEventLog(p, 8)

	var writes int
	var mu sync.Mutex
	el.SetWriteObserver(func(time.Duration, error) {
		mu.Lock()
		writes++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		el.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		el.Append(GameEvent{Type: EventTypeMoraleChanged, AthleteID: "P1"})
	}
	cancel()
	<-done

	if p.count() != 5 {
		t.Errorf("Expected 5 persisted events, got %d", p.count())
	}
	mu.Lock()
	defer mu.Unlock()
	if writes != 5 {
		t.Errorf("Expected observer to see 5 writes, got %d", writes)
	}
}

func TestFullQueueWritesThrough(t *testing.T) {
	p := &memPersister{}
	el := NewEventLog(p, 1)

	el.Append(GameEvent{Type: EventTypeAgedUp})
	el.Append(GameEvent{Type: EventTypeAgedUp})

	if p.count() != 1 {
		t.Errorf("Expected the overflow event to be written through, got %d", p.count())
	}
}

func TestSubscribe(t *testing.T) {
	el := NewMemoryLog()
	ch, cancel := el.Subscribe(4)

	el.Append(GameEvent{Type: EventTypeInjurySustained, AthleteID: "P1"})

	select {
	case e := <-ch:
		if e.Type != EventTypeInjurySustained {
			t.Errorf("Unexpected event %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber did not receive the event")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after cancel")
	}
}

func TestLastSeqPerAthlete(t *testing.T) {
	el := NewMemoryLog()
	if got := el.LastSeq("kai"); got != 0 {
		t.Errorf("Expected 0 for an empty log, got %d", got)
	}
	el.Append(GameEvent{Type: EventTypeTrainingCompleted, AthleteID: "kai"})
	el.Append(GameEvent{Type: EventTypeMoraleChanged, AthleteID: "ren"})
	last := el.Append(GameEvent{Type: EventTypeDayAdvanced, AthleteID: "kai"})

	if got := el.LastSeq("kai"); got != last.Seq {
		t.Errorf("Expected %d, got %d", last.Seq, got)
	}
	if got := el.LastSeq("ren"); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}
}
