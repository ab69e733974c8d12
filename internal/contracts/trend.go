package contracts

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of query dates
const DateLayout = "2006-01-02"

// TrendDatum is one day of observation or prediction for one country (or rollup)
// ⭐ SSOT: 대시보드 JSON 계약
type TrendDatum struct {
	Date time.Time `json:"date"`

	// Cumulative
	Deaths     int64 `json:"deaths"`
	Confirmed  int64 `json:"confirmed"`
	Recoveries int64 `json:"recoveries"`

	// Daily deltas, never clamped
	NewDeaths     int64 `json:"new_deaths"`
	NewCase       int64 `json:"new_case"`
	NewRecoveries int64 `json:"new_recoveries"`

	DaysSinceFirstCase int  `json:"days_since_first_case"`
	IsPrediction       bool `json:"isPrediction"`

	// Forecast fields (nil = absent)
	ConfirmedPrediction      *float64 `json:"confirmed_prediction,omitempty"`
	ConfirmedPredictionUpper *float64 `json:"confirmed_prediction_upper,omitempty"`
	ConfirmedPredictionLower *float64 `json:"confirmed_prediction_lower,omitempty"`
	DailyPrediction          *float64 `json:"daily_prediction,omitempty"`
	DailyPredictionUpper     *float64 `json:"daily_prediction_upper,omitempty"`
	DailyPredictionLower     *float64 `json:"daily_prediction_lower,omitempty"`
	Exposure                 *float64 `json:"exposure,omitempty"`
}

// CountryTrendDict maps iso3 to a chronologically ordered series
type CountryTrendDict map[string][]TrendDatum

// PredictionDict maps iso3 to forecast-tagged points
type PredictionDict map[string][]TrendDatum

// Day truncates t to its calendar day at UTC midnight
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares two instants by calendar day
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// Add combines two points of the same calendar day.
// Prediction fields are summed only when one side is a prediction.
func (t TrendDatum) Add(other TrendDatum) (TrendDatum, error) {
	if !SameDay(t.Date, other.Date) {
		return TrendDatum{}, fmt.Errorf("combine %s with %s: %w",
			t.Date.Format(DateLayout), other.Date.Format(DateLayout), ErrDateMismatch)
	}

	sum := TrendDatum{
		Date:               Day(t.Date),
		Deaths:             t.Deaths + other.Deaths,
		Confirmed:          t.Confirmed + other.Confirmed,
		Recoveries:         t.Recoveries + other.Recoveries,
		NewDeaths:          t.NewDeaths + other.NewDeaths,
		NewCase:            t.NewCase + other.NewCase,
		NewRecoveries:      t.NewRecoveries + other.NewRecoveries,
		DaysSinceFirstCase: max(t.DaysSinceFirstCase, other.DaysSinceFirstCase),
		IsPrediction:       t.IsPrediction || other.IsPrediction,
	}

	if sum.IsPrediction {
		sum.ConfirmedPrediction = addOptional(t.ConfirmedPrediction, other.ConfirmedPrediction)
		sum.ConfirmedPredictionUpper = addOptional(t.ConfirmedPredictionUpper, other.ConfirmedPredictionUpper)
		sum.ConfirmedPredictionLower = addOptional(t.ConfirmedPredictionLower, other.ConfirmedPredictionLower)
		sum.DailyPrediction = addOptional(t.DailyPrediction, other.DailyPrediction)
		sum.DailyPredictionUpper = addOptional(t.DailyPredictionUpper, other.DailyPredictionUpper)
		sum.DailyPredictionLower = addOptional(t.DailyPredictionLower, other.DailyPredictionLower)
		sum.Exposure = addOptional(t.Exposure, other.Exposure)
	}

	return sum, nil
}

// addOptional treats nil as absent: nil+nil stays nil, nil+x is x
func addOptional(a, b *float64) *float64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return Float(*b)
	case b == nil:
		return Float(*a)
	default:
		return Float(*a + *b)
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// InWindow reports whether the point falls within [start, end]; zero bounds are open
func (t TrendDatum) InWindow(start, end time.Time) bool {
	day := Day(t.Date)
	if !start.IsZero() && day.Before(Day(start)) {
		return false
	}
	if !end.IsZero() && day.After(Day(end)) {
		return false
	}
	return true
}

// CloneSeries copies a series so callers can mutate the result freely
func CloneSeries(series []TrendDatum) []TrendDatum {
	if series == nil {
		return nil
	}
	out := make([]TrendDatum, len(series))
	copy(out, series)
	return out
}
