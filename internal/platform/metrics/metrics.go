// Package metrics provides observability for the condition server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers engine and transport counters.
type Collector struct {
	// Training metrics
	TrainingSessions int64
	TrainingBlocked  int64
	TrainingIgnored  int64

	// Condition metrics
	InjuriesSustained int64
	InjuriesRecovered int64
	Supercompensation int64
	MoraleEvents      int64

	// Day tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Persistence metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64
	SnapshotsWritten int64
	SnapshotErrors   int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Global collector instance
var collector = NewCollector()

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTraining records the outcome of one training call.
func (c *Collector) RecordTraining(blocked, ignored bool) {
	switch {
	case blocked:
		atomic.AddInt64(&c.TrainingBlocked, 1)
	case ignored:
		atomic.AddInt64(&c.TrainingIgnored, 1)
	default:
		atomic.AddInt64(&c.TrainingSessions, 1)
	}
}

// RecordInjury records a new injury.
func (c *Collector) RecordInjury() {
	atomic.AddInt64(&c.InjuriesSustained, 1)
}

// RecordRecoveries records injuries healed on a day.
func (c *Collector) RecordRecoveries(n int) {
	atomic.AddInt64(&c.InjuriesRecovered, int64(n))
}

// RecordSupercompensation records a permanent stamina gain.
func (c *Collector) RecordSupercompensation() {
	atomic.AddInt64(&c.Supercompensation, 1)
}

// RecordMoraleEvent records an applied morale event.
func (c *Collector) RecordMoraleEvent() {
	atomic.AddInt64(&c.MoraleEvents, 1)
}

// RecordTick records a day advance across the roster.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordSnapshot records a snapshot backup write.
func (c *Collector) RecordSnapshot(err error) {
	if err != nil {
		atomic.AddInt64(&c.SnapshotErrors, 1)
		return
	}
	atomic.AddInt64(&c.SnapshotsWritten, 1)
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	// Calculate averages
	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"training": map[string]interface{}{
			"sessions": atomic.LoadInt64(&c.TrainingSessions),
			"blocked":  atomic.LoadInt64(&c.TrainingBlocked),
			"ignored":  atomic.LoadInt64(&c.TrainingIgnored),
		},

		"condition": map[string]interface{}{
			"injuries_sustained": atomic.LoadInt64(&c.InjuriesSustained),
			"injuries_recovered": atomic.LoadInt64(&c.InjuriesRecovered),
			"supercompensation":  atomic.LoadInt64(&c.Supercompensation),
			"morale_events":      atomic.LoadInt64(&c.MoraleEvents),
		},

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"snapshots": map[string]interface{}{
			"written": atomic.LoadInt64(&c.SnapshotsWritten),
			"errors":  atomic.LoadInt64(&c.SnapshotErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		_ = json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %d\n\n", name, v)
		}

		// Training metrics
		fmt.Fprintf(w, "# HELP kairo_training_total Training calls by outcome\n")
		fmt.Fprintf(w, "# TYPE kairo_training_total counter\n")
		fmt.Fprintf(w, "kairo_training_total{outcome=\"completed\"} %d\n", atomic.LoadInt64(&c.TrainingSessions))
		fmt.Fprintf(w, "kairo_training_total{outcome=\"blocked\"} %d\n", atomic.LoadInt64(&c.TrainingBlocked))
		fmt.Fprintf(w, "kairo_training_total{outcome=\"ignored\"} %d\n\n", atomic.LoadInt64(&c.TrainingIgnored))

		// Condition metrics
		counter("kairo_injuries_sustained", "Total injuries sustained", atomic.LoadInt64(&c.InjuriesSustained))
		counter("kairo_injuries_recovered", "Total injuries recovered", atomic.LoadInt64(&c.InjuriesRecovered))
		counter("kairo_supercompensation_total", "Permanent stamina gains", atomic.LoadInt64(&c.Supercompensation))
		counter("kairo_morale_events", "Morale events applied", atomic.LoadInt64(&c.MoraleEvents))

		// Tick metrics
		counter("kairo_tick_count", "Total day advances", atomic.LoadInt64(&c.TickCount))
		fmt.Fprintf(w, "# HELP kairo_tick_latency_max_ms Maximum day advance latency\n")
		fmt.Fprintf(w, "# TYPE kairo_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "kairo_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Persistence metrics
		counter("kairo_events_written", "Total events written", atomic.LoadInt64(&c.EventsWritten))
		counter("kairo_event_write_errors", "Total event write errors", atomic.LoadInt64(&c.EventWriteErrors))
		counter("kairo_snapshots_written", "Total snapshot backups", atomic.LoadInt64(&c.SnapshotsWritten))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP kairo_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE kairo_ws_connections gauge\n")
		fmt.Fprintf(w, "kairo_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP kairo_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE kairo_ws_messages_total counter\n")
		fmt.Fprintf(w, "kairo_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "kairo_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
