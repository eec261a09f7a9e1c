package random

// Sequence replays a fixed list of draws, cycling when exhausted.
// An empty Sequence always returns 0.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence builds a scripted source.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: append([]float64(nil), values...)}
}

// Float64 returns the next scripted value.
func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Drawn reports how many values have been consumed.
func (s *Sequence) Drawn() int {
	return s.next
}
