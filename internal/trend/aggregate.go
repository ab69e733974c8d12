package trend

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/africa-covid/backend/internal/contracts"
)

// Aggregate sums the series of the given members by calendar day.
//
// The result covers the union of member dates in ascending order; a member
// without a given day is simply absent from that day's sum. Members missing
// from the store are skipped. A single present member is returned as a copy
// of its own series.
func Aggregate(members []string, store contracts.CountryTrendDict) ([]contracts.TrendDatum, error) {
	present := make([][]contracts.TrendDatum, 0, len(members))
	for _, iso3 := range members {
		if series, ok := store[iso3]; ok && len(series) > 0 {
			present = append(present, series)
		}
	}

	switch len(present) {
	case 0:
		return []contracts.TrendDatum{}, nil
	case 1:
		return contracts.CloneSeries(present[0]), nil
	}

	byDay := make(map[time.Time]contracts.TrendDatum)
	for _, series := range present {
		for _, point := range series {
			day := contracts.Day(point.Date)
			acc, seen := byDay[day]
			if !seen {
				point.Date = day
				byDay[day] = point
				continue
			}
			sum, err := acc.Add(point)
			if err != nil {
				return nil, fmt.Errorf("aggregate %d members: %w", len(present), err)
			}
			byDay[day] = sum
		}
	}

	out := make([]contracts.TrendDatum, 0, len(byDay))
	for _, point := range byDay {
		out = append(out, point)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	return out, nil
}

// Window keeps the points within [start, end]; zero bounds are open
func Window(series []contracts.TrendDatum, start, end time.Time) []contracts.TrendDatum {
	if start.IsZero() && end.IsZero() {
		return series
	}
	out := make([]contracts.TrendDatum, 0, len(series))
	for _, p := range series {
		if p.InWindow(start, end) {
			out = append(out, p)
		}
	}
	return out
}
