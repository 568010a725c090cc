package elo

// DefaultSeedRating is the rating of an athlete on first appearance.
const DefaultSeedRating = 1500.0

// State holds the current rating of every athlete seen by one sweep. It is
// owned by the sweep that receives it and is never shared between sweeps.
type State struct {
	seed    float64
	ratings map[string]float64
}

// NewState creates an empty State that rates unseen athletes at seed.
func NewState(seed float64) *State {
	if seed <= 0 {
		seed = DefaultSeedRating
	}
	return &State{seed: seed, ratings: make(map[string]float64)}
}

// Rating returns the current rating of key, or the seed if key is unseen.
func (s *State) Rating(key string) float64 {
	if r, ok := s.ratings[key]; ok {
		return r
	}
	return s.seed
}

// Seed returns the rating given to unseen athletes.
func (s *State) Seed() float64 { return s.seed }

// Len returns the number of rated athletes.
func (s *State) Len() int { return len(s.ratings) }

func (s *State) apply(updates []update) {
	for _, u := range updates {
		s.ratings[u.key] = s.Rating(u.key) + u.change
	}
}

type update struct {
	key    string
	change float64
}
