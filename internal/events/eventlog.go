// Package events provides the condition journal: an append-only log of every
// change the engine makes to an athlete. UI, dialogue and recap layers read it.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a condition event.
type EventType string

const (
	EventTypeTrainingCompleted EventType = "TRAINING_COMPLETED"
	EventTypeTrainingBlocked   EventType = "TRAINING_BLOCKED"
	EventTypeInjurySustained   EventType = "INJURY_SUSTAINED"
	EventTypeInjuryRecovered   EventType = "INJURY_RECOVERED"
	EventTypeMoraleChanged     EventType = "MORALE_CHANGED"
	EventTypeSupercompensation EventType = "SUPERCOMPENSATION"
	EventTypeDayAdvanced       EventType = "DAY_ADVANCED"
	EventTypeAgedUp            EventType = "AGED_UP"
)

// GameEvent represents an immutable record of a condition change.
type GameEvent struct {
	ID        string      `json:"id"`
	Seq       int64       `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	AthleteID string      `json:"athlete_id"`
	Payload   interface{} `json:"payload"` // Event-specific data
	GameDay   int         `json:"game_day"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// WriteObserver is told about every persisted write.
type WriteObserver func(latency time.Duration, err error)

// EventLog is the in-memory append-only log of condition events.
// With a persister attached, Run must be started to drain writes.
type EventLog struct {
	mu          sync.RWMutex
	events      []GameEvent
	seq         int64
	lastSeq     map[string]int64 // Per athlete
	persister   EventPersister
	queue       chan GameEvent
	observer    WriteObserver
	subscribers map[int]chan GameEvent
	nextSub     int
}

// NewEventLog creates a new event log with an optional persister.
// buffer sizes the write-behind queue.
func NewEventLog(persister EventPersister, buffer int) *EventLog {
	el := &EventLog{
		events:      make([]GameEvent, 0),
		lastSeq:     make(map[string]int64),
		persister:   persister,
		subscribers: make(map[int]chan GameEvent),
	}
	if persister != nil {
		if buffer < 1 {
			buffer = 1
		}
		el.queue = make(chan GameEvent, buffer)
	}
	return el
}

// NewMemoryLog creates an event log with no persistence.
func NewMemoryLog() *EventLog {
	return NewEventLog(nil, 0)
}

// SetWriteObserver registers a callback for persisted writes.
func (el *EventLog) SetWriteObserver(fn WriteObserver) {
	el.mu.Lock()
	el.observer = fn
	el.mu.Unlock()
}

// NewEventID creates a unique event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// Append adds a new event to the log and returns it as stored.
// Missing ID and Timestamp are filled in; Seq is always assigned.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	el.seq++
	event.Seq = el.seq
	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	el.events = append(el.events, event)
	if event.AthleteID != "" {
		el.lastSeq[event.AthleteID] = event.Seq
	}

	for _, ch := range el.subscribers {
		select {
		case ch <- event:
		default: // Slow subscriber, drop
		}
	}
	queue := el.queue
	el.mu.Unlock()

	if queue != nil {
		select {
		case queue <- event:
		default:
			// Queue full: write through
			el.write(event)
		}
	}
	return event
}

// LastSeq returns the sequence number of the latest event for an athlete,
// or 0 if there is none.
func (el *EventLog) LastSeq(athleteID string) int64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.lastSeq[athleteID]
}

// Run drains the write-behind queue into the persister until ctx is done,
// then flushes what is left.
func (el *EventLog) Run(ctx context.Context) {
	if el.queue == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-el.queue:
					el.write(e)
				default:
					return
				}
			}
		case e := <-el.queue:
			el.write(e)
		}
	}
}

func (el *EventLog) write(e GameEvent) {
	start := time.Now()
	err := el.persister.Append(e)

	el.mu.RLock()
	obs := el.observer
	el.mu.RUnlock()
	if obs != nil {
		obs(time.Since(start), err)
	}
}

// Subscribe returns a channel receiving every appended event and a cancel func.
// Events are dropped for a subscriber whose buffer is full.
func (el *EventLog) Subscribe(buffer int) (<-chan GameEvent, func()) {
	el.mu.Lock()
	defer el.mu.Unlock()

	id := el.nextSub
	el.nextSub++
	ch := make(chan GameEvent, buffer)
	el.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			el.mu.Lock()
			delete(el.subscribers, id)
			el.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// GetByAthlete returns all events concerning a specific athlete.
func (el *EventLog) GetByAthlete(athleteID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.AthleteID == athleteID {
			result = append(result, e)
		}
	}
	return result
}

// GetByDay returns all events that occurred on a specific game day.
func (el *EventLog) GetByDay(day int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.GameDay == day {
			result = append(result, e)
		}
	}
	return result
}

// Since returns events with a sequence number greater than seq.
func (el *EventLog) Since(seq int64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]GameEvent, len(el.events))
	copy(out, el.events)
	return out
}

// Len returns the number of events in the log.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}
