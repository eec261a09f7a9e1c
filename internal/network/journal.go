// Package network - journal.go
// Journal endpoints: read the condition event history and per-athlete recaps.
package network

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/events"
	"github.com/MRamiBalles/kairo-condition/internal/infra/storage"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
)

// Recapper builds recaps from the persisted ledger.
type Recapper interface {
	GenerateRecap(ctx context.Context, gameID, athleteID string, sinceDay int) (*storage.Recap, error)
}

// JournalHandler serves the event history.
type JournalHandler struct {
	eventLog *events.EventLog
	recapper Recapper // optional
	gameID   string
	logger   *logger.Logger
}

// NewJournalHandler creates the journal handlers. recapper may be nil.
func NewJournalHandler(el *events.EventLog, recapper Recapper, gameID string, log *logger.Logger) *JournalHandler {
	return &JournalHandler{eventLog: el, recapper: recapper, gameID: gameID, logger: log}
}

// JournalResponse is the body of GET /api/journal.
type JournalResponse struct {
	GameID      string             `json:"game_id"`
	TotalEvents int                `json:"total_events"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleJournal returns the in-memory history, optionally filtered.
// GET /api/journal?athlete=ID&day=N&type=INJURY_SUSTAINED&since=SEQ
func (jh *JournalHandler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	var since int64
	if s := q.Get("since"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, "Invalid since", http.StatusBadRequest)
			return
		}
		since = v
	}
	day := -1
	if s := q.Get("day"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, "Invalid day", http.StatusBadRequest)
			return
		}
		day = v
	}
	athleteID := q.Get("athlete")
	eventType := events.EventType(q.Get("type"))

	filtered := []events.GameEvent{}
	for _, e := range jh.eventLog.Since(since) {
		if athleteID != "" && e.AthleteID != athleteID {
			continue
		}
		if day >= 0 && e.GameDay != day {
			continue
		}
		if eventType != "" && e.Type != eventType {
			continue
		}
		filtered = append(filtered, e)
	}

	jsonResponse(w, http.StatusOK, JournalResponse{
		GameID:      jh.gameID,
		TotalEvents: len(filtered),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      filtered,
	})
}

// HandleStats returns event counts by type.
// GET /api/journal/stats
func (jh *JournalHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := jh.eventLog.Replay()
	counts := make(map[events.EventType]int)
	for _, e := range all {
		counts[e.Type]++
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"total_events": len(all),
		"by_type":      counts,
	})
}

// HandleRecap returns the persisted recap of one athlete.
// GET /api/recap?athlete=ID&since_day=N
func (jh *JournalHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if jh.recapper == nil {
		writeError(w, "Recap needs persistent storage", http.StatusNotFound)
		return
	}
	athleteID := r.URL.Query().Get("athlete")
	if athleteID == "" {
		writeError(w, "Missing athlete", http.StatusBadRequest)
		return
	}
	sinceDay, _ := strconv.Atoi(r.URL.Query().Get("since_day"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	recap, err := jh.recapper.GenerateRecap(ctx, jh.gameID, athleteID, sinceDay)
	if err != nil {
		jh.logger.Errorf("Recap for %s failed: %v", athleteID, err)
		writeError(w, "Recap failed", http.StatusInternalServerError)
		return
	}
	jh.logger.Event("RECAP", athleteID, "Since day "+strconv.Itoa(sinceDay)+", "+strconv.Itoa(len(recap.Events))+" events")
	jsonResponse(w, http.StatusOK, recap)
}

// RegisterRoutes sets up the journal API routes.
func (jh *JournalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/journal", jh.HandleJournal)
	mux.HandleFunc("/api/journal/stats", jh.HandleStats)
	mux.HandleFunc("/api/recap", jh.HandleRecap)
}
