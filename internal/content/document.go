// Package content defines the versioned plan content document
// (weeks -> days -> exercises) and the pure functions derived from it.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the document shape written by this service.
// Version 0 is the legacy shape: a bare JSON array of weeks.
const CurrentSchemaVersion = 1

var (
	ErrUnsupportedSchema = errors.New("unsupported content schema version")
	ErrMalformed         = errors.New("malformed content document")
)

type DayType string

const (
	DayWorkout   DayType = "workout"
	DayRest      DayType = "rest"
	DayNutrition DayType = "nutrition"
)

type Exercise struct {
	Name   string `json:"name" validate:"required,max=200"`
	Sets   int    `json:"sets" validate:"gt=0"`
	Reps   string `json:"reps" validate:"max=50"`
	Weight string `json:"weight,omitempty" validate:"max=50"`
}

type Day struct {
	ID    string  `json:"id" validate:"required,max=64"`
	Type  DayType `json:"type" validate:"oneof=workout rest nutrition"`
	Title string  `json:"title" validate:"max=200"`
	// Duration is in minutes.
	Duration  *int       `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Exercises []Exercise `json:"exercises,omitempty" validate:"dive"`
}

type Week struct {
	ID          string `json:"id" validate:"required,max=64"`
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Days        []Day  `json:"days" validate:"dive"`
}

// Document is the whole program of a plan at one content version.
type Document struct {
	SchemaVersion int    `json:"schemaVersion"`
	Weeks         []Week `json:"weeks" validate:"dive"`
}

// Decode reads a stored or submitted document, accepting every schema
// version up to CurrentSchemaVersion, and returns it normalized to the
// current shape. It does not validate; see Validate.
func Decode(raw []byte) (*Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &Document{SchemaVersion: CurrentSchemaVersion, Weeks: []Week{}}, nil
	}

	doc := &Document{}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &doc.Weeks); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if doc.SchemaVersion > CurrentSchemaVersion || doc.SchemaVersion < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, doc.SchemaVersion)
	}
	normalize(doc)
	return doc, nil
}

// normalize upgrades legacy documents in place.
func normalize(doc *Document) {
	if doc.Weeks == nil {
		doc.Weeks = []Week{}
	}
	if doc.SchemaVersion == 0 {
		for wi := range doc.Weeks {
			for di := range doc.Weeks[wi].Days {
				day := &doc.Weeks[wi].Days[di]
				if day.Type != "" {
					continue
				}
				// Legacy documents had no day type; a day with exercises was a workout.
				if len(day.Exercises) > 0 {
					day.Type = DayWorkout
				} else {
					day.Type = DayRest
				}
			}
		}
	}
	doc.SchemaVersion = CurrentSchemaVersion
}

// Encode serializes the document in the current schema.
func Encode(doc *Document) ([]byte, error) {
	out := *doc
	out.SchemaVersion = CurrentSchemaVersion
	if out.Weeks == nil {
		out.Weeks = []Week{}
	}
	return json.Marshal(&out)
}

// FindDay resolves (weekID, dayID) against the document.
func (d *Document) FindDay(weekID, dayID string) (*Day, bool) {
	for wi := range d.Weeks {
		if d.Weeks[wi].ID != weekID {
			continue
		}
		for di := range d.Weeks[wi].Days {
			if d.Weeks[wi].Days[di].ID == dayID {
				return &d.Weeks[wi].Days[di], true
			}
		}
		return nil, false
	}
	return nil, false
}

// DayKey identifies a day within a plan.
type DayKey struct {
	WeekID string
	DayID  string
}

// WorkoutDays returns the set of workout-type days in the document.
func (d *Document) WorkoutDays() map[DayKey]struct{} {
	out := make(map[DayKey]struct{})
	for _, w := range d.Weeks {
		for _, day := range w.Days {
			if day.Type == DayWorkout {
				out[DayKey{WeekID: w.ID, DayID: day.ID}] = struct{}{}
			}
		}
	}
	return out
}

// Preview returns a copy without exercises, for viewers who do not own the plan.
func (d *Document) Preview() *Document {
	out := &Document{SchemaVersion: d.SchemaVersion, Weeks: make([]Week, len(d.Weeks))}
	for wi, w := range d.Weeks {
		days := make([]Day, len(w.Days))
		for di, day := range w.Days {
			day.Exercises = nil
			days[di] = day
		}
		w.Days = days
		out.Weeks[wi] = w
	}
	return out
}
