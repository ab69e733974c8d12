package trend

import (
	"time"

	"github.com/wonny/africa-covid/backend/internal/contracts"
)

// DeriveDeltas fills the daily fields of a chronological cumulative series in place.
// Day one counts entirely as new; later days are the difference to the previous day.
// Negative differences (upstream corrections) are kept.
func DeriveDeltas(series []contracts.TrendDatum) {
	for i := range series {
		if i == 0 {
			series[i].NewCase = series[i].Confirmed
			series[i].NewDeaths = series[i].Deaths
			series[i].NewRecoveries = series[i].Recoveries
			continue
		}
		prev := series[i-1]
		series[i].NewCase = series[i].Confirmed - prev.Confirmed
		series[i].NewDeaths = series[i].Deaths - prev.Deaths
		series[i].NewRecoveries = series[i].Recoveries - prev.Recoveries
	}
}

// AssignDaysSinceFirstCase counts calendar days since the first day with confirmed > 0.
// Days up to and including the first case stay 0.
func AssignDaysSinceFirstCase(series []contracts.TrendDatum) {
	var first time.Time
	for i := range series {
		if first.IsZero() && series[i].Confirmed > 0 {
			first = contracts.Day(series[i].Date)
		}
		if first.IsZero() {
			series[i].DaysSinceFirstCase = 0
			continue
		}
		series[i].DaysSinceFirstCase = DaysBetween(first, series[i].Date)
	}
}

// DaysBetween returns the number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(contracts.Day(b).Sub(contracts.Day(a)).Hours() / 24)
}
