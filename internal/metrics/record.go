package metrics

import (
	"time"

	"github.com/google/uuid"
)

// Record is one platform-reported health event. The payload varies by
// kind; unused fields are nil, matching the nullable-column style of
// the platform record shapes.
//
// Canonical record units: distance in meters, hydration in liters,
// weight in kilograms, height in meters, blood pressure in mmHg,
// heart-rate samples in bpm, temperature samples in °C. Sleep records
// carry no quantity; their duration is Start..End.
type Record struct {
	ID    uuid.UUID `json:"id"`
	Kind  Kind      `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Count     *int64    `json:"count,omitempty"`
	Value     *float64  `json:"value,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Samples   []float64 `json:"samples,omitempty"`
	Systolic  *float64  `json:"systolic,omitempty"`
	Diastolic *float64  `json:"diastolic,omitempty"`
}

// IntervalRecord builds a record spanning [start, end).
func IntervalRecord(kind Kind, start, end time.Time) Record {
	return Record{ID: uuid.New(), Kind: kind, Start: start.UTC(), End: end.UTC()}
}

// PointRecord builds a record at a single instant.
func PointRecord(kind Kind, at time.Time) Record {
	return Record{ID: uuid.New(), Kind: kind, Start: at.UTC(), End: at.UTC()}
}

// WriteRequest is a partial snapshot submitted for writing. Present
// fields are converted to platform record shapes; nil fields are
// skipped. Units follow the snapshot display conventions (height in
// cm, hydration in mL, distance in km).
type WriteRequest struct {
	Steps           *int64         `json:"steps,omitempty"`
	HeartRate       *float64       `json:"heart_rate,omitempty"`
	Distance        *float64       `json:"distance,omitempty"`
	Weight          *float64       `json:"weight,omitempty"`
	Height          *float64       `json:"height,omitempty"`
	BloodPressure   *BloodPressure `json:"blood_pressure,omitempty"`
	BodyTemperature *float64       `json:"body_temperature,omitempty"`
	Hydration       *float64       `json:"hydration,omitempty"`
}

// Empty reports whether no field is set.
func (w WriteRequest) Empty() bool {
	return w.Steps == nil && w.HeartRate == nil && w.Distance == nil &&
		w.Weight == nil && w.Height == nil && w.BloodPressure == nil &&
		w.BodyTemperature == nil && w.Hydration == nil
}
