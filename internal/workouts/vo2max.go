package workouts

import (
	"fmt"
	"math"
)

// VO2MaxInput holds everything the estimation needs; the caller supplies
// the age from the current profile, there is no other implicit state.
type VO2MaxInput struct {
	Type Type
	// Pace is min/km for steady, interval and incline_walk,
	// and min/500m for rowing.
	Pace         float64
	HeartRateBPM int
	Age          int
	// InclinePct is the treadmill incline as a percent number (5% -> 5),
	// used only for incline_walk.
	InclinePct float64
	// StrokeRateSPM is strokes per minute, used only for rowing.
	StrokeRateSPM int
}

// ComputeVO2Max estimates the VO2max (ml/kg/min) of a single session.
//
// Running uses a modified Daniels regression over speed in m/min, with
// interval sessions scaled up by 1.05 for their higher relative
// intensity. Incline walking uses the ACSM walking equation; the incline
// percent is converted to a decimal grade (5% -> 0.05) before it enters
// the formula. Rowing normalizes the 500m split to a 1000m-equivalent
// rate and adds a stroke rate term.
//
// The raw estimate is then divided by the observed heart rate ratio
// against the age-derived ceiling (220 - age) and rounded to 1 decimal.
// Pure function: every call recomputes from scratch.
func ComputeVO2Max(in VO2MaxInput) (float64, error) {
	if in.Pace <= 0 {
		return 0, &DomainError{Reason: "pace must be positive"}
	}
	if in.HeartRateBPM <= 0 {
		return 0, &DomainError{Reason: "heart rate must be positive"}
	}
	if in.Age >= 220 {
		return 0, &DomainError{Reason: fmt.Sprintf("age %d leaves no heart rate ceiling", in.Age)}
	}

	var vo2 float64
	switch in.Type {
	case TypeSteady, TypeInterval:
		speed := 1000 / in.Pace // meters per minute
		vo2 = -4.60 + 0.182258*speed + 0.000104*speed*speed
		if in.Type == TypeInterval {
			vo2 *= 1.05
		}
	case TypeInclineWalk:
		if in.InclinePct < 0 {
			return 0, &DomainError{Reason: "incline must not be negative"}
		}
		speedMph := (60 / in.Pace) / 1.609
		vo2 = 0.1*speedMph + 1.8*speedMph*(in.InclinePct/100) + 3.5
	case TypeRowing:
		speed := 1000 / in.Pace
		vo2 = 4.0*speed*0.17 + 0.35*float64(in.StrokeRateSPM) + 7.0
	default:
		// legacy modalities like "tempo" and "long" land here too
		return 0, &DomainError{Reason: fmt.Sprintf("unsupported workout type: %s", in.Type)}
	}

	maxHR := float64(220 - in.Age)
	hrRatio := float64(in.HeartRateBPM) / maxHR

	return roundTo1Decimal(vo2 / hrRatio), nil
}

func roundTo1Decimal(v float64) float64 {
	return math.Round(v*10) / 10
}
