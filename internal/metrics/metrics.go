// Package metrics defines the health metric kinds, their record and
// snapshot shapes, and the per-kind reduction policies that turn raw
// platform records into daily values.
package metrics

import "math"

// Kind identifies a health metric type.
type Kind string

const (
	KindSteps           Kind = "steps"
	KindHeartRate       Kind = "heart_rate"
	KindDistance        Kind = "distance"
	KindWeight          Kind = "weight"
	KindHeight          Kind = "height"
	KindBloodPressure   Kind = "blood_pressure"
	KindBodyTemperature Kind = "body_temperature"
	KindHydration       Kind = "hydration"
	KindSleep           Kind = "sleep"
)

// AllKinds lists every metric kind in display order.
var AllKinds = []Kind{
	KindSteps,
	KindHeartRate,
	KindDistance,
	KindWeight,
	KindHeight,
	KindBloodPressure,
	KindBodyTemperature,
	KindHydration,
	KindSleep,
}

// Policy is the reduction rule applied to a kind's records when
// computing its daily value.
type Policy int

const (
	// SumOverInterval sums per-record quantities across the day.
	SumOverInterval Policy = iota
	// MeanOfSamples averages all finite positive samples across the day.
	MeanOfSamples
	// LatestOfPeriod takes the chronologically last record overlapping
	// the lookback window.
	LatestOfPeriod
)

// PolicyFor returns the aggregation policy for a kind.
// Sleep records are intervals; summing their durations gives hours
// slept, so sleep follows the sum policy.
func PolicyFor(kind Kind) Policy {
	switch kind {
	case KindSteps, KindDistance, KindHydration, KindSleep:
		return SumOverInterval
	case KindHeartRate, KindBodyTemperature:
		return MeanOfSamples
	case KindWeight, KindHeight, KindBloodPressure:
		return LatestOfPeriod
	default:
		return SumOverInterval
	}
}

// Unit returns the display unit for a kind's daily value.
func Unit(kind Kind) string {
	switch kind {
	case KindSteps:
		return "steps"
	case KindHeartRate:
		return "bpm"
	case KindDistance:
		return "km"
	case KindWeight:
		return "kg"
	case KindHeight:
		return "cm"
	case KindBloodPressure:
		return "mmHg"
	case KindBodyTemperature:
		return "°C"
	case KindHydration:
		return "mL"
	case KindSleep:
		return "hr"
	default:
		return ""
	}
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
