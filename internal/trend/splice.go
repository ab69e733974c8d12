package trend

import (
	"fmt"

	"github.com/wonny/africa-covid/backend/internal/contracts"
)

// Splice appends a forecast continuation to an observed series.
//
// The anchor is the last observed confirmed count. The central estimate and both
// bounds are the anchor plus the running sum of their own daily predictions, so
// the bounds widen from the anchor rather than from the central path.
// Forecast points dated on or before the last observed day are dropped.
// DaysSinceFirstCase keeps counting from the last observed point, or stays 0
// when the observed series never had a case.
// The observed part is returned unmodified.
func Splice(observed, forecast []contracts.TrendDatum) ([]contracts.TrendDatum, error) {
	if len(observed) == 0 {
		return nil, fmt.Errorf("splice forecast: %w", contracts.ErrEmptySeries)
	}

	last := observed[len(observed)-1]
	lastDay := contracts.Day(last.Date)
	baseline := float64(last.Confirmed)
	hadCase := last.DaysSinceFirstCase > 0 || last.Confirmed > 0

	out := make([]contracts.TrendDatum, 0, len(observed)+len(forecast))
	out = append(out, observed...)

	var central, upper, lower float64
	for _, f := range forecast {
		day := contracts.Day(f.Date)
		if !day.After(lastDay) {
			continue
		}

		central += value(f.DailyPrediction)
		upper += value(f.DailyPredictionUpper)
		lower += value(f.DailyPredictionLower)

		daysSince := 0
		if hadCase {
			daysSince = last.DaysSinceFirstCase + DaysBetween(lastDay, day)
		}

		out = append(out, contracts.TrendDatum{
			Date:                     day,
			DaysSinceFirstCase:       daysSince,
			IsPrediction:             true,
			ConfirmedPrediction:      contracts.Float(baseline + central),
			ConfirmedPredictionUpper: contracts.Float(baseline + upper),
			ConfirmedPredictionLower: contracts.Float(baseline + lower),
			DailyPrediction:          copyOptional(f.DailyPrediction),
			DailyPredictionUpper:     copyOptional(f.DailyPredictionUpper),
			DailyPredictionLower:     copyOptional(f.DailyPredictionLower),
			Exposure:                 copyOptional(f.Exposure),
		})
	}

	return out, nil
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func copyOptional(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return contracts.Float(*p)
}
