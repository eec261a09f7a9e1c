package athlete

// InjuryType is the severity class of an injury.
type InjuryType string

const (
	MinorStrain     InjuryType = "MINOR_STRAIN"
	ModerateSprain  InjuryType = "MODERATE_SPRAIN"
	SevereTear      InjuryType = "SEVERE_TEAR"
	FatigueFracture InjuryType = "FATIGUE_FRACTURE"
	Concussion      InjuryType = "CONCUSSION"
)

var injuryTypeOrder = [...]InjuryType{MinorStrain, ModerateSprain, SevereTear, FatigueFracture, Concussion}

// AllInjuryTypes returns the injury classes in draw order.
func AllInjuryTypes() []InjuryType {
	out := make([]InjuryType, len(injuryTypeOrder))
	copy(out, injuryTypeOrder[:])
	return out
}

// InjuryLocation is the body part that was hurt.
type InjuryLocation string

const (
	Ankle     InjuryLocation = "ANKLE"
	Knee      InjuryLocation = "KNEE"
	Hamstring InjuryLocation = "HAMSTRING"
	Groin     InjuryLocation = "GROIN"
	Back      InjuryLocation = "BACK"
	Head      InjuryLocation = "HEAD"
	Shoulder  InjuryLocation = "SHOULDER"
)

var locationOrder = [...]InjuryLocation{Ankle, Knee, Hamstring, Groin, Back, Head, Shoulder}

// AllInjuryLocations returns the body parts in draw order.
func AllInjuryLocations() []InjuryLocation {
	out := make([]InjuryLocation, len(locationOrder))
	copy(out, locationOrder[:])
	return out
}

// Injury is one active (or just recovered) injury.
type Injury struct {
	Type                  InjuryType     `json:"type"`
	Location              InjuryLocation `json:"location"`
	Severity              int            `json:"severity"` // 40-100
	RecoveryDaysRemaining float64        `json:"recovery_days_remaining"`
	InitialRecoveryDays   int            `json:"initial_recovery_days"`
	OnsetDay              int            `json:"onset_day"`
	IsChronic             bool           `json:"is_chronic"`
}
