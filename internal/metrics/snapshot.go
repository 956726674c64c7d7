package metrics

import (
	"math"
	"sort"
	"time"
)

// BloodPressure is a paired systolic/diastolic reading in mmHg.
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// DailySnapshot holds one aggregated value per metric kind for a
// calendar day. Sum and mean kinds are zero when no records exist;
// latest-of-period kinds are nil, because absence is meaningful for
// them (a {0,0} blood pressure is not a reading).
type DailySnapshot struct {
	Date            string         `json:"date"`
	Steps           int64          `json:"steps"`
	HeartRate       float64        `json:"heart_rate"`
	Distance        float64        `json:"distance"`
	Weight          *float64       `json:"weight"`
	Height          *float64       `json:"height"`
	BloodPressure   *BloodPressure `json:"blood_pressure"`
	BodyTemperature float64        `json:"body_temperature"`
	Hydration       int64          `json:"hydration"`
	Sleep           float64        `json:"sleep"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// DateLayout is the calendar-day format used throughout.
const DateLayout = "2006-01-02"

// NewDailySnapshot returns a zero-filled snapshot for the given day.
func NewDailySnapshot(date time.Time) *DailySnapshot {
	return &DailySnapshot{
		Date:        date.Format(DateLayout),
		GeneratedAt: time.Now().UTC(),
	}
}

// Value returns the kind's scalar for charting. Latest-of-period kinds
// chart as 0 when absent; blood pressure charts its systolic value.
func (s *DailySnapshot) Value(kind Kind) float64 {
	switch kind {
	case KindSteps:
		return float64(s.Steps)
	case KindHeartRate:
		return s.HeartRate
	case KindDistance:
		return s.Distance
	case KindWeight:
		if s.Weight != nil {
			return *s.Weight
		}
	case KindHeight:
		if s.Height != nil {
			return *s.Height
		}
	case KindBloodPressure:
		if s.BloodPressure != nil {
			return s.BloodPressure.Systolic
		}
	case KindBodyTemperature:
		return s.BodyTemperature
	case KindHydration:
		return float64(s.Hydration)
	case KindSleep:
		return s.Sleep
	}
	return 0
}

// Apply reduces the kind's records into the snapshot field using the
// kind's aggregation policy. Records outside the caller's query window
// are assumed already filtered.
func (s *DailySnapshot) Apply(kind Kind, recs []Record) {
	switch PolicyFor(kind) {
	case SumOverInterval:
		s.applySum(kind, recs)
	case MeanOfSamples:
		s.applyMean(kind, recs)
	case LatestOfPeriod:
		s.applyLatest(kind, recs)
	}
}

func (s *DailySnapshot) applySum(kind Kind, recs []Record) {
	var total float64
	for _, r := range recs {
		switch kind {
		case KindSteps:
			if r.Count != nil {
				total += float64(*r.Count)
			}
		case KindDistance, KindHydration:
			if r.Value != nil && isFinite(*r.Value) {
				total += *r.Value
			}
		case KindSleep:
			total += r.End.Sub(r.Start).Hours()
		}
	}
	switch kind {
	case KindSteps:
		s.Steps = int64(math.Round(total))
	case KindDistance:
		s.Distance = round2(total / 1000) // meters to km
	case KindHydration:
		s.Hydration = int64(math.Round(total * 1000)) // liters to mL
	case KindSleep:
		s.Sleep = round1(total)
	}
}

func (s *DailySnapshot) applyMean(kind Kind, recs []Record) {
	var sum float64
	var n int
	for _, r := range recs {
		for _, v := range r.Samples {
			if !isFinite(v) || v <= 0 {
				continue
			}
			sum += v
			n++
		}
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	switch kind {
	case KindHeartRate:
		s.HeartRate = math.Round(mean)
	case KindBodyTemperature:
		s.BodyTemperature = round1(mean)
	}
}

func (s *DailySnapshot) applyLatest(kind Kind, recs []Record) {
	if len(recs) == 0 {
		return
	}
	sorted := make([]Record, len(recs))
	copy(sorted, recs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].End.Before(sorted[j].End) })
	last := sorted[len(sorted)-1]

	switch kind {
	case KindWeight:
		if last.Value != nil && isFinite(*last.Value) {
			v := round1(*last.Value)
			s.Weight = &v
		}
	case KindHeight:
		if last.Value != nil && isFinite(*last.Value) {
			v := round1(*last.Value * 100) // meters to cm
			s.Height = &v
		}
	case KindBloodPressure:
		if last.Systolic != nil && last.Diastolic != nil {
			s.BloodPressure = &BloodPressure{
				Systolic:  math.Round(*last.Systolic),
				Diastolic: math.Round(*last.Diastolic),
			}
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DailyMetric is one day's value for a single kind, labeled for
// positional charting.
type DailyMetric struct {
	Date    string  `json:"date"`
	Day     string  `json:"day"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	IsToday bool    `json:"is_today"`
}

// WeeklyData projects a week of snapshots into one flat 7-entry series
// per metric kind. Consumers index by offset, so every series always
// has exactly one entry per day in the range.
type WeeklyData struct {
	Steps           []DailyMetric `json:"steps"`
	HeartRate       []DailyMetric `json:"heart_rate"`
	Distance        []DailyMetric `json:"distance"`
	Weight          []DailyMetric `json:"weight"`
	Height          []DailyMetric `json:"height"`
	BloodPressure   []DailyMetric `json:"blood_pressure"`
	BodyTemperature []DailyMetric `json:"body_temperature"`
	Hydration       []DailyMetric `json:"hydration"`
	Sleep           []DailyMetric `json:"sleep"`
}

// Series returns the series for a kind.
func (w *WeeklyData) Series(kind Kind) []DailyMetric {
	switch kind {
	case KindSteps:
		return w.Steps
	case KindHeartRate:
		return w.HeartRate
	case KindDistance:
		return w.Distance
	case KindWeight:
		return w.Weight
	case KindHeight:
		return w.Height
	case KindBloodPressure:
		return w.BloodPressure
	case KindBodyTemperature:
		return w.BodyTemperature
	case KindHydration:
		return w.Hydration
	case KindSleep:
		return w.Sleep
	}
	return nil
}

// Append adds one day's entry to the kind's series.
func (w *WeeklyData) Append(kind Kind, m DailyMetric) {
	switch kind {
	case KindSteps:
		w.Steps = append(w.Steps, m)
	case KindHeartRate:
		w.HeartRate = append(w.HeartRate, m)
	case KindDistance:
		w.Distance = append(w.Distance, m)
	case KindWeight:
		w.Weight = append(w.Weight, m)
	case KindHeight:
		w.Height = append(w.Height, m)
	case KindBloodPressure:
		w.BloodPressure = append(w.BloodPressure, m)
	case KindBodyTemperature:
		w.BodyTemperature = append(w.BodyTemperature, m)
	case KindHydration:
		w.Hydration = append(w.Hydration, m)
	case KindSleep:
		w.Sleep = append(w.Sleep, m)
	}
}

// StoredWeekly is one archived week. Identity is (WeekStart, WeekEnd);
// the archive holds at most one entry per identity.
type StoredWeekly struct {
	WeekStart  string     `json:"week_start"`
	WeekEnd    string     `json:"week_end"`
	Data       WeeklyData `json:"data"`
	ArchivedAt time.Time  `json:"archived_at"`
}
