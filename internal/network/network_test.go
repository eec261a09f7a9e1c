package network

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/events"
	"github.com/MRamiBalles/kairo-condition/internal/infra/cache"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/platform/metrics"
	"github.com/MRamiBalles/kairo-condition/internal/random"
	"github.com/MRamiBalles/kairo-condition/internal/session"
)

type server struct {
	mux     *http.ServeMux
	hub     *Hub
	log     *events.EventLog
	metrics *metrics.Collector
	ticker  *session.Ticker
	runner  *session.Runner
}

func newServer(t *testing.T, perSecond, maxClients int) *server {
	t.Helper()
	quiet := logger.NewWithWriter(io.Discard)
	el := events.NewMemoryLog()
	m := metrics.NewCollector()
	coord := engine.NewCoordinator(random.NewSequence(0.999), el, quiet, m)
	for _, id := range []string{"kai", "ren"} {
		a := athlete.NewAthlete(id, strings.ToUpper(id))
		if err := coord.Register(engine.Registration{
			Athlete:    *a,
			Age:        21,
			Attributes: athlete.Attributes{Shooting: 50, Speed: 50},
			Stamina:    engine.StaminaStats{BaseStamina: 400, Potential: 0.5},
			Morale:     50,
		}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	runner := session.NewRunner(coord, quiet, 8)
	go runner.Run(ctx)
	ticker := session.NewTicker(runner, quiet, m, time.Hour, 0)

	hub := NewHub(quiet, m, maxClients, 64, 64)
	go hub.Run(ctx)
	go hub.Forward(ctx, el, 64)

	rc := cache.NewReadinessCache(16, time.Minute, el)
	ready := make(chan struct{})
	go rc.Watch(ctx, el, ready)
	<-ready
	mux := http.NewServeMux()
	NewCoachAPI(runner, ticker, rc, quiet).RegisterRoutes(mux)
	NewJournalHandler(el, nil, "test", quiet).RegisterRoutes(mux)
	mux.HandleFunc("/ws", ServeWS(hub, session.NewDispatcher(runner, ticker), perSecond))

	return &server{mux: mux, hub: hub, log: el, metrics: m, ticker: ticker, runner: runner}
}

func (s *server) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestTrainEndpoint(t *testing.T) {
	s := newServer(t, 0, 10)

	rec := s.do(t, http.MethodPost, "/api/train", TrainRequest{AthleteID: "kai", Drill: "shooting practice", Intensity: 0.8})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var report engine.TrainingReport
	json.NewDecoder(rec.Body).Decode(&report)
	if report.Outcome != engine.OutcomeCompleted || report.AttributeDeltas[athlete.Shooting] <= 0 {
		t.Errorf("Unexpected report %+v", report)
	}

	tests := []struct {
		name string
		req  TrainRequest
		want int
	}{
		{"unknown drill", TrainRequest{AthleteID: "kai", Drill: "juggling"}, http.StatusBadRequest},
		{"unknown athlete", TrainRequest{AthleteID: "ghost", Drill: "FILM_STUDY"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(t, http.MethodPost, "/api/train", tt.req); rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}

	if rec := s.do(t, http.MethodGet, "/api/train", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", rec.Code)
	}
}

func TestTrainEndpointBlocked(t *testing.T) {
	s := newServer(t, 0, 10)
	code := http.StatusOK
	for i := 0; i < 10 && code == http.StatusOK; i++ {
		code = s.do(t, http.MethodPost, "/api/train", TrainRequest{AthleteID: "kai", Drill: "SCRIMMAGE", Intensity: 1}).Code
	}
	if code != http.StatusConflict {
		t.Errorf("Expected 409 once stamina runs out, got %d", code)
	}
}

func TestMoraleAndReadinessEndpoints(t *testing.T) {
	s := newServer(t, 0, 10)

	before := s.do(t, http.MethodGet, "/api/readiness?athlete=kai", nil)
	if before.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", before.Code)
	}
	var r engine.Readiness
	json.NewDecoder(before.Body).Decode(&r)
	if r.Performance != 1 {
		t.Errorf("Expected neutral performance 1, got %v", r.Performance)
	}

	rec := s.do(t, http.MethodPost, "/api/morale", MoraleRequest{AthleteID: "kai", Event: "win"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodPost, "/api/morale", MoraleRequest{AthleteID: "kai", Event: "party"}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown event, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/readiness?athlete=kai", nil)
	json.NewDecoder(rec.Body).Decode(&r)
	if r.Morale != athlete.MoraleGood {
		t.Fatalf("Expected readiness to reflect GOOD morale, got %s", r.Morale)
	}

	all := s.do(t, http.MethodGet, "/api/readiness", nil)
	var list []engine.Readiness
	json.NewDecoder(all.Body).Decode(&list)
	if len(list) != 2 {
		t.Errorf("Expected readiness for 2 athletes, got %d", len(list))
	}
}

func TestReadinessRightAfterTraining(t *testing.T) {
	s := newServer(t, 0, 10)

	for i := 0; i < 3; i++ {
		var before, after engine.Readiness
		json.NewDecoder(s.do(t, http.MethodGet, "/api/readiness?athlete=kai", nil).Body).Decode(&before)

		rec := s.do(t, http.MethodPost, "/api/train", TrainRequest{AthleteID: "kai", Drill: "sprints", Intensity: 0.8})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
		}

		json.NewDecoder(s.do(t, http.MethodGet, "/api/readiness?athlete=kai", nil).Body).Decode(&after)
		if after.StaminaRatio >= before.StaminaRatio {
			t.Fatalf("Expected session %d to lower the stamina ratio from %v, got %v", i, before.StaminaRatio, after.StaminaRatio)
		}
	}
}

func TestTimedOutTrainingIsNotApplied(t *testing.T) {
	s := newServer(t, 0, 10)

	release := make(chan struct{})
	busy := make(chan struct{})
	go s.runner.Do(context.Background(), func(*engine.Coordinator) error {
		close(busy)
		<-release
		return nil
	})
	<-busy

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	body, _ := json.Marshal(TrainRequest{AthleteID: "kai", Drill: "sprints", Intensity: 0.8})
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/train", bytes.NewReader(body)).WithContext(ctx))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d: %s", rec.Code, rec.Body)
	}
	close(release)

	var snap engine.Snapshot
	if err := s.runner.Do(context.Background(), func(c *engine.Coordinator) error {
		var err error
		snap, err = c.Snapshot("kai")
		return err
	}); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Stamina.Current != 400 {
		t.Errorf("Expected stamina to stay at 400 after a timed out request, got %v", snap.Stamina.Current)
	}
	if n := len(s.log.GetByAthlete("kai")); n != 0 {
		t.Errorf("Expected no journal entries for kai, got %d", n)
	}
}

func TestAdvanceDayAndJournal(t *testing.T) {
	s := newServer(t, 0, 10)

	rec := s.do(t, http.MethodPost, "/api/advance-day", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var day DayResponse
	json.NewDecoder(rec.Body).Decode(&day)
	if day.Day != 1 || len(day.Reports) != 2 {
		t.Errorf("Unexpected day response %+v", day)
	}

	s.do(t, http.MethodPost, "/api/age", AthleteRequest{AthleteID: "ren"})

	rec = s.do(t, http.MethodGet, "/api/journal?athlete=ren&type=AGED_UP", nil)
	var journal JournalResponse
	json.NewDecoder(rec.Body).Decode(&journal)
	if journal.TotalEvents != 1 {
		t.Errorf("Expected 1 AGED_UP event for ren, got %d", journal.TotalEvents)
	}

	if rec := s.do(t, http.MethodGet, "/api/journal?day=x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad day, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/recap?athlete=ren", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without storage, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/athletes", nil)
	var body struct {
		Day      int               `json:"day"`
		Athletes []engine.Snapshot `json:"athletes"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Day != 1 || len(body.Athletes) != 2 || body.Athletes[1].Age != 22 {
		t.Errorf("Unexpected athletes body %+v", body)
	}
}

func dial(t *testing.T, s *server, query string) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(s.mux)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("Dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Expected a %s message: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestWebSocketCommandAndBroadcast(t *testing.T) {
	s := newServer(t, 0, 10)
	conn, closeAll := dial(t, s, "?athlete=kai")
	defer closeAll()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("train film")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	reply := readUntil(t, conn, MsgTypeReply)
	if text, _ := reply.Payload.(string); !strings.Contains(text, "FILM_STUDY done") {
		t.Errorf("Unexpected reply %v", reply.Payload)
	}

	// Events for another athlete are filtered out; ren's morale event should not arrive.
	s.do(t, http.MethodPost, "/api/morale", MoraleRequest{AthleteID: "ren", Event: "LOSS"})
	s.do(t, http.MethodPost, "/api/morale", MoraleRequest{AthleteID: "kai", Event: "WIN"})
	for {
		msg := readUntil(t, conn, MsgTypeEvent)
		if msg.AthleteID != "kai" {
			t.Fatalf("Expected only kai's events, got %s", msg.AthleteID)
		}
		payload, _ := msg.Payload.(map[string]interface{})
		if payload["type"] == string(events.EventTypeMoraleChanged) {
			break
		}
	}
}

func TestWebSocketErrorsAndRateLimit(t *testing.T) {
	s := newServer(t, 1, 10)
	conn, closeAll := dial(t, s, "?athlete=kai")
	defer closeAll()

	conn.WriteJSON(CommandMessage{AthleteID: "ren", Command: "status"})
	if msg := readUntil(t, conn, MsgTypeError); !strings.Contains(msg.Payload.(string), "bound to kai") {
		t.Errorf("Unexpected error %v", msg.Payload)
	}

	conn.WriteMessage(websocket.TextMessage, []byte("status"))
	conn.WriteMessage(websocket.TextMessage, []byte("status"))
	readUntil(t, conn, MsgTypeReply)
	if msg := readUntil(t, conn, MsgTypeError); msg.Payload != "slow down" {
		t.Errorf("Expected rate limit error, got %v", msg.Payload)
	}
}

func TestHubRejectsOverCapacity(t *testing.T) {
	s := newServer(t, 0, 1)

	_, closeFirst := dial(t, s, "")
	defer closeFirst()
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Expected first client to register")
		}
		time.Sleep(time.Millisecond)
	}

	second, closeSecond := dial(t, s, "")
	defer closeSecond()
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Error("Expected the second client to be closed")
	}
	if s.hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", s.hub.ClientCount())
	}
}

func TestRateLimiter(t *testing.T) {
	l := newRateLimiter(2)
	now := time.Now()
	if !l.Allow(now) || !l.Allow(now) {
		t.Fatal("Expected two commands to pass")
	}
	if l.Allow(now.Add(500 * time.Millisecond)) {
		t.Error("Expected the third command in the window to be refused")
	}
	if !l.Allow(now.Add(1100 * time.Millisecond)) {
		t.Error("Expected a new window to allow commands")
	}
	if !newRateLimiter(0).Allow(now) {
		t.Error("Expected a zero limit to disable limiting")
	}
}
