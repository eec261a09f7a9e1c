package athlete

// MoraleState is one of the five morale bands.
type MoraleState string

const (
	MoraleDreadful  MoraleState = "DREADFUL"
	MoralePoor      MoraleState = "POOR"
	MoraleNeutral   MoraleState = "NEUTRAL"
	MoraleGood      MoraleState = "GOOD"
	MoraleExcellent MoraleState = "EXCELLENT"
)

// MoraleEvent is a discrete happening that shifts morale.
type MoraleEvent string

const (
	EventWin              MoraleEvent = "WIN"
	EventLoss             MoraleEvent = "LOSS"
	EventGreatPerformance MoraleEvent = "GREAT_PERFORMANCE"
	EventPoorPerformance  MoraleEvent = "POOR_PERFORMANCE"
	EventTrainingSuccess  MoraleEvent = "TRAINING_SUCCESS"
	EventTrainingFailure  MoraleEvent = "TRAINING_FAILURE"
	EventRestDay          MoraleEvent = "REST_DAY"
	EventBenchWarm        MoraleEvent = "BENCH_WARM"
)

var moraleEventOrder = [...]MoraleEvent{
	EventWin, EventLoss, EventGreatPerformance, EventPoorPerformance,
	EventTrainingSuccess, EventTrainingFailure, EventRestDay, EventBenchWarm,
}

// AllMoraleEvents returns every known morale event.
func AllMoraleEvents() []MoraleEvent {
	out := make([]MoraleEvent, len(moraleEventOrder))
	copy(out, moraleEventOrder[:])
	return out
}

// MoraleRecord is the morale of one athlete.
type MoraleRecord struct {
	Value          float64     `json:"value"`
	State          MoraleState `json:"state"`
	LastUpdatedDay int         `json:"last_updated_day"`
}
