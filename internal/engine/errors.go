package engine

import "errors"

var (
	// ErrInsufficientStamina blocks a session the athlete cannot afford. No state changes.
	ErrInsufficientStamina = errors.New("insufficient stamina")
	// ErrUnknownTrainingType is a drill or load class missing from the balance tables.
	ErrUnknownTrainingType = errors.New("unknown training type")
	// ErrUnknownMoraleEvent is a morale event missing from the balance tables.
	ErrUnknownMoraleEvent = errors.New("unknown morale event")
	// ErrUnknownAthlete is returned for ids the coordinator has not registered.
	ErrUnknownAthlete = errors.New("unknown athlete")
	// ErrDuplicateAthlete is returned when registering an id twice.
	ErrDuplicateAthlete = errors.New("athlete already registered")
	// ErrDayOutOfOrder is returned when a day is not after the last simulated day.
	ErrDayOutOfOrder = errors.New("day out of order")
)
