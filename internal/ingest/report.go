package ingest

import (
	"sort"
	"time"
)

// Report summarizes one ingestion run (also printed by the ingest command)
type Report struct {
	Countries        int       `json:"countries"`
	Predictions      int       `json:"predictions"`
	Stats            int       `json:"stats"`
	FirstDate        time.Time `json:"first_date"`
	LastDate         time.Time `json:"last_date"`
	SubnationalRows  int       `json:"subnational_rows"`
	OutsideContinent int       `json:"outside_continent"`
	DuplicateRows    int       `json:"duplicate_rows"`
	BadCells         int       `json:"bad_cells"`
	BadForecastRows  int       `json:"bad_forecast_rows"`

	// source -> distinct unresolved names
	Unresolved map[string][]string `json:"unresolved,omitempty"`
	// metric -> iso3 of countries without a row in that metric table
	MissingMetricRows map[string][]string `json:"missing_metric_rows,omitempty"`
	// iso3 of stats records without population
	MissingPopulation []string `json:"missing_population,omitempty"`
	// optional sources that could not be loaded
	SkippedSources []string `json:"skipped_sources,omitempty"`

	Generation uint64        `json:"generation,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

func newReport() *Report {
	return &Report{
		Unresolved:        make(map[string][]string),
		MissingMetricRows: make(map[string][]string),
	}
}

// UnresolvedCount returns the number of distinct unresolved names across sources
func (r *Report) UnresolvedCount() int {
	n := 0
	for _, names := range r.Unresolved {
		n += len(names)
	}
	return n
}

func (r *Report) addUnresolved(source, name string) {
	for _, existing := range r.Unresolved[source] {
		if existing == name {
			return
		}
	}
	r.Unresolved[source] = append(r.Unresolved[source], name)
}

func (r *Report) sortLists() {
	for _, names := range r.Unresolved {
		sort.Strings(names)
	}
	for _, codes := range r.MissingMetricRows {
		sort.Strings(codes)
	}
	sort.Strings(r.MissingPopulation)
	sort.Strings(r.SkippedSources)
}
