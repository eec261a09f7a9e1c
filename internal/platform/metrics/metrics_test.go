package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.RecordTraining(false, false)
	c.RecordTraining(true, false)
	c.RecordTraining(false, true)
	c.RecordInjury()
	c.RecordRecoveries(2)
	c.RecordTick(3 * time.Millisecond)
	c.RecordTick(1 * time.Millisecond)
	c.RecordEventWrite(time.Millisecond, errors.New("disk full"))

	if c.TrainingSessions != 1 || c.TrainingBlocked != 1 || c.TrainingIgnored != 1 {
		t.Errorf("Unexpected training counters %d/%d/%d", c.TrainingSessions, c.TrainingBlocked, c.TrainingIgnored)
	}
	if c.InjuriesRecovered != 2 {
		t.Errorf("Expected 2 recoveries, got %d", c.InjuriesRecovered)
	}
	if c.TickLatencyMax != int64(3*time.Millisecond) {
		t.Errorf("Expected max tick latency 3ms, got %d", c.TickLatencyMax)
	}
	if c.EventWriteErrors != 1 {
		t.Errorf("Expected 1 write error, got %d", c.EventWriteErrors)
	}
}

func TestPrometheusHandler(t *testing.T) {
	c := NewCollector()
	c.RecordInjury()

	rec := httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "kairo_injuries_sustained 1") {
		t.Errorf("Missing injury counter in:\n%s", body)
	}
	if !strings.Contains(body, `kairo_training_total{outcome="blocked"} 0`) {
		t.Errorf("Missing training counter in:\n%s", body)
	}
}
