package model

import "time"

// DreamstateUpdate is the append-only audit record of one persona
// evolution. Previous equals the immediately preceding update's New for the
// same persona (chain consistency); both snapshots are taken by the evolver
// around the commit.
type DreamstateUpdate struct {
	ID            string    `json:"id"`
	PersonaID     string    `json:"persona_id"`
	Description   string    `json:"description"`
	Justification string    `json:"justification"`
	Previous      State     `json:"previous_state"`
	New           State     `json:"new_state"`
	CreatedAt     time.Time `json:"created_at"`
}

// FloatChange is a numeric axis before/after pair.
type FloatChange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// StringChange is a preference before/after pair.
type StringChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StateDiff lists only the fields that differ between two persona states.
// Unchanged keys are absent; Biography pointers are nil when unchanged.
type StateDiff struct {
	Traits          map[string]FloatChange  `json:"traits,omitempty"`
	Values          map[string]FloatChange  `json:"values,omitempty"`
	Preferences     map[string]StringChange `json:"preferences,omitempty"`
	BiographyBefore *string                 `json:"biography_before,omitempty"`
	BiographyAfter  *string                 `json:"biography_after,omitempty"`
}

// Empty reports whether the diff carries no changes at all.
func (d StateDiff) Empty() bool {
	return len(d.Traits) == 0 && len(d.Values) == 0 && len(d.Preferences) == 0 && d.BiographyAfter == nil
}

// Diff computes the added and changed entries between the update's Previous
// and New snapshots.
func (u *DreamstateUpdate) Diff() StateDiff {
	var d StateDiff
	for k, to := range u.New.Traits {
		if from, ok := u.Previous.Traits[k]; !ok || from != to {
			if d.Traits == nil {
				d.Traits = map[string]FloatChange{}
			}
			d.Traits[k] = FloatChange{From: from, To: to}
		}
	}
	for k, to := range u.New.Values {
		if from, ok := u.Previous.Values[k]; !ok || from != to {
			if d.Values == nil {
				d.Values = map[string]FloatChange{}
			}
			d.Values[k] = FloatChange{From: from, To: to}
		}
	}
	for k, to := range u.New.Preferences {
		if from, ok := u.Previous.Preferences[k]; !ok || from != to {
			if d.Preferences == nil {
				d.Preferences = map[string]StringChange{}
			}
			d.Preferences[k] = StringChange{From: from, To: to}
		}
	}
	if u.Previous.Biography != u.New.Biography {
		before, after := u.Previous.Biography, u.New.Biography
		d.BiographyBefore = &before
		d.BiographyAfter = &after
	}
	return d
}
