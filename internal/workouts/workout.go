package workouts

import (
	"sync/atomic"
	"time"
)

// Type is the workout modality. Each modality has its own VO2max
// estimation formula and its own pace unit: min/km for the running and
// walking modalities, min/500m for rowing.
type Type string

const (
	TypeSteady      Type = "steady"
	TypeInterval    Type = "interval"
	TypeInclineWalk Type = "incline_walk"
	TypeRowing      Type = "rowing"
)

const dateLayout = "2006-01-02"

func (t Type) Valid() bool {
	switch t {
	case TypeSteady, TypeInterval, TypeInclineWalk, TypeRowing:
		return true
	default:
		return false
	}
}

type Workout struct {
	ID            int64   `json:"id"`
	Date          string  `json:"date"` // ISO 8601, YYYY-MM-DD
	Type          Type    `json:"type"`
	DurationMin   float64 `json:"duration_min"`
	DistanceKm    float64 `json:"distance_km"`
	HeartRateBPM  int     `json:"heart_rate_bpm"`
	Pace          float64 `json:"pace"`
	InclinePct    float64 `json:"incline_pct,omitempty"`
	StrokeRateSPM int     `json:"stroke_rate_spm,omitempty"`
	VO2Max        float64 `json:"vo2max"`
}

var lastID atomic.Int64

// NewID returns a unix time in micro, bumped past the previously issued
// ID so that two quick calls never collide. Fair enough for the use
// case of per-user workout IDs.
func NewID() int64 {
	for {
		last := lastID.Load()
		id := time.Now().UnixMicro()
		if id <= last {
			id = last + 1
		}
		if lastID.CompareAndSwap(last, id) {
			return id
		}
	}
}

// Draft is a new workout as submitted by the client, before the VO2max
// is computed and an ID assigned. Rowing distance comes in meters
// (that is how rowers report it) and is stored in kilometers.
type Draft struct {
	Date           string  `json:"date"`
	Type           Type    `json:"type"`
	DurationMin    float64 `json:"duration_min"`
	DistanceKm     float64 `json:"distance_km,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	HeartRateBPM   int     `json:"heart_rate_bpm"`
	Pace           float64 `json:"pace"`
	InclinePct     float64 `json:"incline_pct,omitempty"`
	StrokeRateSPM  int     `json:"stroke_rate_spm,omitempty"`
}

func (d Draft) Validate() error {
	if !d.Type.Valid() {
		return NewValidationError("type", "unknown workout type")
	}
	if _, err := time.Parse(dateLayout, d.Date); err != nil {
		return NewValidationError("date", "must be YYYY-MM-DD")
	}
	if d.DurationMin < 1 || d.DurationMin > 300 {
		return NewValidationError("duration_min", "must be between 1 and 300")
	}
	if d.HeartRateBPM < 60 || d.HeartRateBPM > 220 {
		return NewValidationError("heart_rate_bpm", "must be between 60 and 220")
	}
	if d.Pace <= 0 {
		return NewValidationError("pace", "must be positive")
	}

	if d.Type == TypeRowing {
		if d.DistanceMeters <= 0 {
			return NewValidationError("distance_meters", "must be positive")
		}
		if d.StrokeRateSPM < 15 || d.StrokeRateSPM > 40 {
			return NewValidationError("stroke_rate_spm", "must be between 15 and 40")
		}
	} else {
		if d.DistanceKm <= 0 {
			return NewValidationError("distance_km", "must be positive")
		}
		if d.StrokeRateSPM != 0 {
			return NewValidationError("stroke_rate_spm", "only valid for rowing workouts")
		}
	}

	if d.Type == TypeInclineWalk {
		if d.InclinePct < 0 || d.InclinePct > 15 {
			return NewValidationError("incline_pct", "must be between 0 and 15")
		}
	} else if d.InclinePct != 0 {
		return NewValidationError("incline_pct", "only valid for incline walk workouts")
	}

	return nil
}

// distanceKm normalizes the draft distance to kilometers.
func (d Draft) distanceKm() float64 {
	if d.Type == TypeRowing {
		return d.DistanceMeters / 1000
	}
	return d.DistanceKm
}

// Patch carries the updatable workout fields; nil means "leave as is".
// The workout type and date are fixed at creation.
type Patch struct {
	DurationMin   *float64 `json:"duration_min,omitempty"`
	DistanceKm    *float64 `json:"distance_km,omitempty"`
	HeartRateBPM  *int     `json:"heart_rate_bpm,omitempty"`
	Pace          *float64 `json:"pace,omitempty"`
	InclinePct    *float64 `json:"incline_pct,omitempty"`
	StrokeRateSPM *int     `json:"stroke_rate_spm,omitempty"`
}

func (p Patch) apply(w Workout) Workout {
	if p.DurationMin != nil {
		w.DurationMin = *p.DurationMin
	}
	if p.DistanceKm != nil {
		w.DistanceKm = *p.DistanceKm
	}
	if p.HeartRateBPM != nil {
		w.HeartRateBPM = *p.HeartRateBPM
	}
	if p.Pace != nil {
		w.Pace = *p.Pace
	}
	if p.InclinePct != nil {
		w.InclinePct = *p.InclinePct
	}
	if p.StrokeRateSPM != nil {
		w.StrokeRateSPM = *p.StrokeRateSPM
	}
	return w
}

// draft re-creates a draft from an already stored workout, so that a
// patched record goes through the same validation as a new one.
func (w Workout) draft() Draft {
	d := Draft{
		Date:          w.Date,
		Type:          w.Type,
		DurationMin:   w.DurationMin,
		DistanceKm:    w.DistanceKm,
		HeartRateBPM:  w.HeartRateBPM,
		Pace:          w.Pace,
		InclinePct:    w.InclinePct,
		StrokeRateSPM: w.StrokeRateSPM,
	}
	if w.Type == TypeRowing {
		d.DistanceKm = 0
		d.DistanceMeters = w.DistanceKm * 1000
	}
	return d
}
