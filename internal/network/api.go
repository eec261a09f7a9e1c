// Package network - api.go
// Coach REST API: training, morale events, the season clock and readiness.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/infra/cache"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/session"
)

const requestTimeout = 5 * time.Second

// CoachAPI handles the HTTP surface of a running season.
type CoachAPI struct {
	runner *session.Runner
	ticker *session.Ticker
	cache  *cache.ReadinessCache // optional
	logger *logger.Logger
}

// NewCoachAPI creates the coach handlers. rc may be nil.
func NewCoachAPI(runner *session.Runner, ticker *session.Ticker, rc *cache.ReadinessCache, log *logger.Logger) *CoachAPI {
	return &CoachAPI{runner: runner, ticker: ticker, cache: rc, logger: log}
}

// TrainRequest is the payload of POST /api/train.
type TrainRequest struct {
	AthleteID string  `json:"athlete_id"`
	Drill     string  `json:"drill"`
	Intensity float64 `json:"intensity"`
}

// MoraleRequest is the payload of POST /api/morale.
type MoraleRequest struct {
	AthleteID string `json:"athlete_id"`
	Event     string `json:"event"`
}

// AthleteRequest names one athlete.
type AthleteRequest struct {
	AthleteID string `json:"athlete_id"`
}

// DayResponse is the body of POST /api/advance-day.
type DayResponse struct {
	Day     int                `json:"day"`
	Reports []engine.DayReport `json:"reports"`
}

// HandleTrain runs a training session.
// POST /api/train
func (api *CoachAPI) HandleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if !api.decode(w, r, &req) {
		return
	}
	drill := athlete.Drill(canonical(req.Drill))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	var report engine.TrainingReport
	err := api.runner.Do(ctx, func(c *engine.Coordinator) error {
		var err error
		report, err = c.ExecuteTraining(req.AthleteID, drill, req.Intensity)
		return err
	})
	switch {
	case err == nil:
		jsonResponse(w, http.StatusOK, report)
	case errors.Is(err, engine.ErrInsufficientStamina), errors.Is(err, engine.ErrUnknownTrainingType):
		// The session ran and filled in the report.
		jsonResponse(w, statusFor(err), report)
	default:
		api.jsonError(w, err)
	}
}

// HandleMorale applies a morale event.
// POST /api/morale
func (api *CoachAPI) HandleMorale(w http.ResponseWriter, r *http.Request) {
	var req MoraleRequest
	if !api.decode(w, r, &req) {
		return
	}
	event := athlete.MoraleEvent(canonical(req.Event))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	var rec athlete.MoraleRecord
	err := api.runner.Do(ctx, func(c *engine.Coordinator) error {
		var err error
		rec, err = c.ApplyMoraleEvent(req.AthleteID, event)
		return err
	})
	if err != nil {
		api.jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// HandleAge adds a year to an athlete.
// POST /api/age
func (api *CoachAPI) HandleAge(w http.ResponseWriter, r *http.Request) {
	var req AthleteRequest
	if !api.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	var deltas map[athlete.Attribute]float64
	err := api.runner.Do(ctx, func(c *engine.Coordinator) error {
		var err error
		deltas, err = c.AgeUp(req.AthleteID)
		return err
	})
	if err != nil {
		api.jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"athlete_id": req.AthleteID, "deltas": deltas})
}

// HandleAdvanceDay moves the season clock forward one day.
// POST /api/advance-day
func (api *CoachAPI) HandleAdvanceDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	day, reports, err := api.ticker.Advance(ctx)
	if err != nil {
		api.jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, DayResponse{Day: day, Reports: reports})
}

// HandleReadiness returns one athlete's readiness, or everyone's.
// GET /api/readiness?athlete=ID
func (api *CoachAPI) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if id := r.URL.Query().Get("athlete"); id != "" {
		rd, err := api.readiness(ctx, id)
		if err != nil {
			api.jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, rd)
		return
	}

	var all []engine.Readiness
	err := api.runner.Do(ctx, func(c *engine.Coordinator) error {
		for _, id := range c.IDs() {
			rd, err := c.Readiness(id)
			if err != nil {
				return err
			}
			all = append(all, rd)
		}
		return nil
	})
	if err != nil {
		api.jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, all)
}

func (api *CoachAPI) readiness(ctx context.Context, id string) (engine.Readiness, error) {
	compute := func() (engine.Readiness, error) {
		var rd engine.Readiness
		err := api.runner.Do(ctx, func(c *engine.Coordinator) error {
			var err error
			rd, err = c.Readiness(id)
			return err
		})
		return rd, err
	}
	if api.cache == nil {
		return compute()
	}
	return api.cache.GetOrCompute(id, compute)
}

// HandleAthletes returns every athlete snapshot.
// GET /api/athletes
func (api *CoachAPI) HandleAthletes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	var snaps []engine.Snapshot
	err := api.runner.Do(ctx, func(c *engine.Coordinator) error {
		snaps = c.Snapshots()
		return nil
	})
	if err != nil {
		api.jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"day": api.ticker.Day(), "athletes": snaps})
}

// RegisterRoutes sets up the coach API routes.
func (api *CoachAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/train", api.HandleTrain)
	mux.HandleFunc("/api/morale", api.HandleMorale)
	mux.HandleFunc("/api/age", api.HandleAge)
	mux.HandleFunc("/api/advance-day", api.HandleAdvanceDay)
	mux.HandleFunc("/api/readiness", api.HandleReadiness)
	mux.HandleFunc("/api/athletes", api.HandleAthletes)
}

func (api *CoachAPI) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (api *CoachAPI) jsonError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		api.logger.Errorf("Coach API failure: %v", err)
	}
	writeError(w, err.Error(), status)
}

// canonical maps "shooting practice" or "shooting-practice" to SHOOTING_PRACTICE.
func canonical(name string) string {
	r := strings.NewReplacer(" ", "_", "-", "_")
	return strings.ToUpper(r.Replace(strings.TrimSpace(name)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownAthlete):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownTrainingType), errors.Is(err, engine.ErrUnknownMoraleEvent):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientStamina), errors.Is(err, engine.ErrDayOutOfOrder):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, session.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// jsonResponse writes v as JSON.
func jsonResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends an error response.
func writeError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, status, map[string]string{"error": message})
}
