package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/geo"
	"github.com/wonny/africa-covid/backend/internal/metrics"
	"github.com/wonny/africa-covid/backend/internal/sources"
	"github.com/wonny/africa-covid/backend/internal/trend"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Source names
const (
	SourceConfirmed  = "confirmed"
	SourceDeaths     = "deaths"
	SourceRecovered  = "recovered"
	SourceCovariates = "covariates"
	SourcePopulation = "population"
	SourceForecast   = "forecast"
)

// Column names of the inputs
const (
	colProvince = "Province/State"
	colCountry  = "Country/Region"

	colCovariateCountry = "country_name"
	colPopulationName   = "country"
	colPopulation       = "population"

	colForecastISO3  = "iso3"
	colForecastDate  = "date"
	colDaily         = "daily_prediction"
	colDailyUpper    = "daily_prediction_upper"
	colDailyLower    = "daily_prediction_lower"
	colExposure      = "exposure"
	seriesDateLayout = "1/2/06"
)

// Inputs are the row tables of one run. Covariates, Population and Forecast may be nil.
type Inputs struct {
	Confirmed  *sources.Table
	Deaths     *sources.Table
	Recovered  *sources.Table
	Covariates *sources.Table
	Population *sources.Table
	Forecast   *sources.Table
}

// Result is the canonical, iso3-keyed output of a run
type Result struct {
	Countries   []contracts.CountryIdentity
	Trends      contracts.CountryTrendDict
	Predictions contracts.PredictionDict
	Stats       map[string]contracts.CountryStats
}

// Normalizer turns source tables into canonical series and stats.
// It never parses file formats; rows arrive as sources.Table.
type Normalizer struct {
	resolver   *geo.Resolver
	continents []string
	logger     *logger.Logger
}

// NewNormalizer creates a normalizer keeping countries of the given continents
func NewNormalizer(resolver *geo.Resolver, continents []string, log *logger.Logger) *Normalizer {
	return &Normalizer{
		resolver:   resolver,
		continents: continents,
		logger:     log.Module("normalizer"),
	}
}

// Normalize builds a Result. Unresolvable rows are dropped and reported, never fatal.
func (n *Normalizer) Normalize(in Inputs) (*Result, *Report, error) {
	report := newReport()

	if in.Confirmed == nil || in.Deaths == nil || in.Recovered == nil {
		return nil, nil, fmt.Errorf("normalize: confirmed, deaths and recovered tables are required")
	}

	trends, countries, err := n.buildSeries(in, report)
	if err != nil {
		return nil, nil, err
	}

	stats := n.buildStats(in.Covariates, in.Population, report)
	predictions := n.buildPredictions(in.Forecast, report)

	sort.Slice(countries, func(i, j int) bool {
		return countries[i].Name < countries[j].Name
	})

	report.Countries = len(trends)
	report.Predictions = len(predictions)
	report.Stats = len(stats)
	report.sortLists()

	return &Result{
		Countries:   countries,
		Trends:      trends,
		Predictions: predictions,
		Stats:       stats,
	}, report, nil
}

// dateColumns returns the indices and days of the date columns of a JHU header
func dateColumns(table *sources.Table) ([]int, []time.Time) {
	var idx []int
	var days []time.Time
	for i, h := range table.Header {
		d, err := time.Parse(seriesDateLayout, strings.TrimSpace(h))
		if err != nil {
			continue
		}
		idx = append(idx, i)
		days = append(days, contracts.Day(d))
	}
	return idx, days
}

// resolveRow resolves a country-level row of a JHU table.
// ok is false for sub-national, unresolved and untracked rows.
func (n *Normalizer) resolveRow(table *sources.Table, row []string, report *Report) (contracts.CountryIdentity, bool) {
	if table.Value(row, colProvince) != "" {
		report.SubnationalRows++
		return contracts.CountryIdentity{}, false
	}
	return n.resolveName(table.Name, table.Value(row, colCountry), report)
}

func (n *Normalizer) resolveName(source, name string, report *Report) (contracts.CountryIdentity, bool) {
	id, err := n.resolver.Resolve(name)
	if err != nil {
		report.addUnresolved(source, name)
		metrics.UnresolvedRows.WithLabelValues(source).Inc()
		n.logger.WithFields(map[string]interface{}{
			"source":  source,
			"country": name,
		}).Warn("Unresolved country name, row dropped")
		return contracts.CountryIdentity{}, false
	}
	if !geo.InContinent(id, n.continents) {
		report.OutsideContinent++
		return contracts.CountryIdentity{}, false
	}
	return id, true
}

// metricRows indexes the country-level rows of a metric table by iso3
func (n *Normalizer) metricRows(table *sources.Table, report *Report) map[string][]string {
	rows := make(map[string][]string)
	for _, row := range table.Rows {
		id, ok := n.resolveRow(table, row, report)
		if !ok {
			continue
		}
		if _, dup := rows[id.ISO3]; dup {
			report.DuplicateRows++
			continue
		}
		rows[id.ISO3] = row
	}
	return rows
}

func (n *Normalizer) buildSeries(in Inputs, report *Report) (contracts.CountryTrendDict, []contracts.CountryIdentity, error) {
	if !in.Confirmed.HasColumns(colProvince, colCountry) {
		return nil, nil, fmt.Errorf("normalize %s: missing %q or %q column", in.Confirmed.Name, colProvince, colCountry)
	}
	cols, days := dateColumns(in.Confirmed)
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("normalize %s: no date columns", in.Confirmed.Name)
	}

	deaths := n.metricRows(in.Deaths, report)
	recovered := n.metricRows(in.Recovered, report)

	trends := make(contracts.CountryTrendDict)
	var countries []contracts.CountryIdentity

	for _, row := range in.Confirmed.Rows {
		id, ok := n.resolveRow(in.Confirmed, row, report)
		if !ok {
			continue
		}
		if _, dup := trends[id.ISO3]; dup {
			report.DuplicateRows++
			n.logger.WithField("iso3", id.ISO3).Warn("Duplicate country row ignored")
			continue
		}

		deathRow, hasDeaths := deaths[id.ISO3]
		if !hasDeaths {
			report.MissingMetricRows[SourceDeaths] = append(report.MissingMetricRows[SourceDeaths], id.ISO3)
			n.logger.WithField("iso3", id.ISO3).Warn("No deaths row, using zeros")
		}
		recRow, hasRecovered := recovered[id.ISO3]
		if !hasRecovered {
			report.MissingMetricRows[SourceRecovered] = append(report.MissingMetricRows[SourceRecovered], id.ISO3)
			n.logger.WithField("iso3", id.ISO3).Warn("No recovered row, using zeros")
		}

		series := make([]contracts.TrendDatum, len(cols))
		for i, col := range cols {
			series[i] = contracts.TrendDatum{
				Date:      days[i],
				Confirmed: n.count(SourceConfirmed, id.ISO3, row, col, report),
			}
			// positional join: same column index in every metric table
			if hasDeaths {
				series[i].Deaths = n.count(SourceDeaths, id.ISO3, deathRow, col, report)
			}
			if hasRecovered {
				series[i].Recoveries = n.count(SourceRecovered, id.ISO3, recRow, col, report)
			}
		}

		trend.DeriveDeltas(series)
		trend.AssignDaysSinceFirstCase(series)

		trends[id.ISO3] = series
		countries = append(countries, id)
	}

	report.FirstDate = days[0]
	report.LastDate = days[len(days)-1]

	return trends, countries, nil
}

// count parses a cumulative cell; bad cells count as 0
func (n *Normalizer) count(source, iso3 string, row []string, col int, report *Report) int64 {
	raw := sources.Cell(row, col)
	v, err := parseCount(raw)
	if err != nil {
		report.BadCells++
		n.logger.WithFields(map[string]interface{}{
			"source": source,
			"iso3":   iso3,
			"column": col,
			"value":  raw,
		}).Warn("Non-numeric cell counted as 0")
		return 0
	}
	return v
}

func parseCount(raw string) (int64, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}

var errMissingCell = errors.New("missing value")

func parseOptional(raw string) (*float64, error) {
	if raw == "" || strings.EqualFold(raw, "NA") {
		return nil, errMissingCell
	}
	v, err := parseFloat(raw)
	if err != nil {
		return nil, err
	}
	return contracts.Float(v), nil
}

// buildStats joins covariates and population by iso3
func (n *Normalizer) buildStats(covariates, population *sources.Table, report *Report) map[string]contracts.CountryStats {
	stats := make(map[string]contracts.CountryStats)

	ensure := func(id contracts.CountryIdentity) contracts.CountryStats {
		if s, ok := stats[id.ISO3]; ok {
			return s
		}
		return contracts.CountryStats{Name: id.Name, ISO3: id.ISO3, Region: id.Region}
	}

	if covariates != nil {
		for _, row := range covariates.Rows {
			id, ok := n.resolveName(covariates.Name, covariates.Value(row, colCovariateCountry), report)
			if !ok {
				continue
			}
			s := ensure(id)
			s.LogUrbanPopulation = n.covariate(covariates, row, "log_urban_pop")
			s.LogHealthExpenditure = n.covariate(covariates, row, "log_health_exp")
			s.LogHospitalBeds = n.covariate(covariates, row, "log_hospital_beds")
			s.LogPopulationDensity = n.covariate(covariates, row, "log_pop_density")
			s.LogPopulationOver65 = n.covariate(covariates, row, "log_pop_over_65")
			s.LogInternationalArrivals = n.covariate(covariates, row, "log_arrivals")
			s.LogPhysicians = n.covariate(covariates, row, "log_physicians")
			if nrows, err := strconv.Atoi(covariates.Value(row, "nrows")); err == nil {
				s.NRows = nrows
			}
			stats[id.ISO3] = s
		}
	}

	if population != nil {
		for _, row := range population.Rows {
			id, ok := n.resolveName(population.Name, population.Value(row, colPopulationName), report)
			if !ok {
				continue
			}
			pop, err := parseCount(population.Value(row, colPopulation))
			if err != nil || pop <= 0 {
				report.BadCells++
				continue
			}
			s := ensure(id)
			s.Population = &pop
			stats[id.ISO3] = s
		}
	}

	for iso3, s := range stats {
		if s.Population == nil {
			report.MissingPopulation = append(report.MissingPopulation, iso3)
		}
	}

	return stats
}

func (n *Normalizer) covariate(table *sources.Table, row []string, column string) float64 {
	raw := table.Value(row, column)
	if raw == "" {
		return 0
	}
	v, err := parseFloat(raw)
	if err != nil {
		n.logger.WithFields(map[string]interface{}{
			"column": column,
			"value":  raw,
		}).Debug("Non-numeric covariate")
		return 0
	}
	return v
}

// buildPredictions reads forecast rows keyed by iso3
func (n *Normalizer) buildPredictions(forecast *sources.Table, report *Report) contracts.PredictionDict {
	predictions := make(contracts.PredictionDict)
	if forecast == nil {
		return predictions
	}

	for _, row := range forecast.Rows {
		code := forecast.Value(row, colForecastISO3)
		id, err := n.resolver.ResolveISO3(code)
		if err != nil {
			report.addUnresolved(forecast.Name, code)
			metrics.UnresolvedRows.WithLabelValues(forecast.Name).Inc()
			continue
		}
		if !geo.InContinent(id, n.continents) {
			report.OutsideContinent++
			continue
		}

		date, err := time.Parse(contracts.DateLayout, forecast.Value(row, colForecastDate))
		if err != nil {
			report.BadForecastRows++
			n.logger.WithFields(map[string]interface{}{
				"iso3":  id.ISO3,
				"value": forecast.Value(row, colForecastDate),
			}).Warn("Bad forecast date, row dropped")
			continue
		}

		point := contracts.TrendDatum{Date: contracts.Day(date), IsPrediction: true}
		var bad bool
		for column, dst := range map[string]**float64{
			colDaily:      &point.DailyPrediction,
			colDailyUpper: &point.DailyPredictionUpper,
			colDailyLower: &point.DailyPredictionLower,
			colExposure:   &point.Exposure,
		} {
			v, err := parseOptional(forecast.Value(row, column))
			if errors.Is(err, errMissingCell) {
				continue
			}
			if err != nil {
				bad = true
				break
			}
			*dst = v
		}
		if bad || point.DailyPrediction == nil {
			report.BadForecastRows++
			continue
		}

		predictions[id.ISO3] = append(predictions[id.ISO3], point)
	}

	for iso3, series := range predictions {
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		predictions[iso3] = series
	}

	return predictions
}
