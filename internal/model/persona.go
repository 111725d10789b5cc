// Package model defines the persisted record types of the memory lifecycle.
package model

import "time"

// Persona is the agent's evolving profile. Exactly one persona is current
// (the most recently updated row); it is created with defaults on bootstrap
// and mutated only by dreamstate evolution.
type Persona struct {
	ID          string             `json:"id"`
	Traits      map[string]float64 `json:"traits"`
	Values      map[string]float64 `json:"values"`
	Preferences map[string]string  `json:"preferences"`
	Biography   string             `json:"biography"`
	LastUpdated time.Time          `json:"last_updated"`
}

// DefaultPersona returns the bootstrap profile used when no persona exists.
// Trait and value axes live in [0,1].
func DefaultPersona() *Persona {
	return &Persona{
		Traits: map[string]float64{
			"openness":          0.7,
			"conscientiousness": 0.8,
			"extraversion":      0.6,
			"agreeableness":     0.75,
			"neuroticism":       0.3,
		},
		Values: map[string]float64{
			"helpfulness": 0.9,
			"honesty":     0.95,
			"curiosity":   0.8,
		},
		Preferences: map[string]string{
			"communication_style": "adaptive",
		},
		Biography:   "I am a conversational agent still forming my first impressions.",
		LastUpdated: time.Now().UTC(),
	}
}

// State captures the mutable persona fields at a point in time. Maps are
// copied so later persona mutation cannot alter the snapshot.
func (p *Persona) State() State {
	return State{
		Traits:      copyFloats(p.Traits),
		Values:      copyFloats(p.Values),
		Preferences: copyStrings(p.Preferences),
		Biography:   p.Biography,
	}
}

// State is a point-in-time snapshot of traits, values, preferences and
// biography. DreamstateUpdate records hold one taken immediately before and
// one immediately after an evolution.
type State struct {
	Traits      map[string]float64 `json:"traits"`
	Values      map[string]float64 `json:"values"`
	Preferences map[string]string  `json:"preferences"`
	Biography   string             `json:"biography"`
}

func copyFloats(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
