package profiles

import (
	"errors"
	"fmt"
	"math"
)

var ErrNoProfile = errors.New("no profile")

// ValidationError is an out-of-bound profile field, rejected before the
// stored profile is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Profile is the single per-user record; saving always replaces it
// wholesale, there are no partial profile updates. Name is an optional
// display label and is never validated.
type Profile struct {
	Name     string  `json:"name"`
	Age      int     `json:"age"`
	WeightKg float64 `json:"weight_kg"`
	HeightCm int     `json:"height_cm"`
}

func (p Profile) Validate() error {
	if p.Age <= 0 || p.Age > 120 {
		return &ValidationError{Field: "age", Reason: "must be between 1 and 120"}
	}
	if p.WeightKg < 30 || p.WeightKg > 200 {
		return &ValidationError{Field: "weight_kg", Reason: "must be between 30 and 200"}
	}
	if p.HeightCm < 100 || p.HeightCm > 250 {
		return &ValidationError{Field: "height_cm", Reason: "must be between 100 and 250"}
	}
	return nil
}

// BMI is derived on read, never stored.
func (p Profile) BMI() float64 {
	heightM := float64(p.HeightCm) / 100
	return math.Round(p.WeightKg/(heightM*heightM)*10) / 10
}
