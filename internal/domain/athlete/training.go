package athlete

// Drill is a training session type.
type Drill string

const (
	WeightLifting     Drill = "WEIGHT_LIFTING"
	SprintDrills      Drill = "SPRINT_DRILLS"
	Plyometrics       Drill = "PLYOMETRICS"
	ShootingPractice  Drill = "SHOOTING_PRACTICE"
	BallHandling      Drill = "BALL_HANDLING"
	FinishingDrills   Drill = "FINISHING_DRILLS"
	DefensiveFootwork Drill = "DEFENSIVE_FOOTWORK"
	PostDefense       Drill = "POST_DEFENSE"
	FilmStudy         Drill = "FILM_STUDY"
	Scrimmage         Drill = "SCRIMMAGE"
	RecoverySession   Drill = "RECOVERY_SESSION"
)

var drillOrder = [...]Drill{
	WeightLifting, SprintDrills, Plyometrics,
	ShootingPractice, BallHandling, FinishingDrills,
	DefensiveFootwork, PostDefense, FilmStudy,
	Scrimmage, RecoverySession,
}

// AllDrills returns every known drill in catalog order.
func AllDrills() []Drill {
	out := make([]Drill, len(drillOrder))
	copy(out, drillOrder[:])
	return out
}

// LoadClass groups drills by how hard they hit the stamina system.
type LoadClass string

const (
	LoadLight         LoadClass = "LIGHT"
	LoadModerate      LoadClass = "MODERATE"
	LoadHighIntensity LoadClass = "HIGH_INTENSITY"
	LoadGame          LoadClass = "GAME"
	LoadRecovery      LoadClass = "RECOVERY"
)

// Activity is one training call after morale and injury modifiers are folded in.
// Intensity and Potential are expected in 0-1; Modifier scales the resulting growth.
type Activity struct {
	Drill     Drill   `json:"drill"`
	Intensity float64 `json:"intensity"`
	Potential float64 `json:"potential"`
	Modifier  float64 `json:"modifier"`
}
