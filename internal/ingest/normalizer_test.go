package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/geo"
	"github.com/wonny/africa-covid/backend/internal/sources"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

func table(t *testing.T, name, csv string) *sources.Table {
	t.Helper()
	tbl, err := sources.ParseCSV(name, strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

const confirmedCSV = `Province/State,Country/Region,Lat,Long,3/1/20,3/2/20,3/3/20
,Nigeria,9.0,8.6,0,2,5
,Kenya,-0.02,37.9,1,1,4
Reunion,France,-21.1,55.5,3,4,5
,France,46.2,2.2,100,130,190
,Atlantis,0,0,1,2,3
,Congo (Kinshasa),-4.0,21.7,0,x,3
`

const deathsCSV = `Province/State,Country/Region,Lat,Long,3/1/20,3/2/20,3/3/20
,Nigeria,9.0,8.6,0,0,1
,Kenya,-0.02,37.9,0,0,0
,Congo (Kinshasa),-4.0,21.7,0,0,1
`

const recoveredCSV = `Province/State,Country/Region,Lat,Long,3/1/20,3/2/20,3/3/20
,Nigeria,9.0,8.6,0,0,2
,Congo (Kinshasa),-4.0,21.7,0,0,0
`

const covariatesCSV = `country_name,log_urban_pop,log_health_exp,log_hospital_beds,log_pop_density,log_pop_over_65,log_arrivals,log_physicians,nrows
Nigeria,4.2,3.1,-0.5,5.3,1.0,14.2,-1.3,42
"Congo, Dem. Rep.",3.8,2.9,-0.1,3.6,1.1,12.1,-2.5,40
Kenya,3.3,4.1,0.4,4.5,0.9,13.8,-1.5,41
`

const populationCSV = `country,population
Nigeria,"206,139,589"
Kenya,53771296
Narnia,1
`

const forecastCSV = `iso3,date,daily_prediction,daily_prediction_upper,daily_prediction_lower,exposure
NGA,2020-03-05,4,6,2,0.1
NGA,2020-03-04,3,5,1,
KEN,bad-date,1,1,1,
USA,2020-03-04,10,12,8,
ZZZ,2020-03-04,1,1,1,
`

func newTestNormalizer() *Normalizer {
	return NewNormalizer(geo.Default(), []string{geo.Africa}, logger.Nop())
}

func testInputs(t *testing.T) Inputs {
	return Inputs{
		Confirmed:  table(t, SourceConfirmed, confirmedCSV),
		Deaths:     table(t, SourceDeaths, deathsCSV),
		Recovered:  table(t, SourceRecovered, recoveredCSV),
		Covariates: table(t, SourceCovariates, covariatesCSV),
		Population: table(t, SourcePopulation, populationCSV),
		Forecast:   table(t, SourceForecast, forecastCSV),
	}
}

func d(day int) time.Time {
	return time.Date(2020, 3, day, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_Series(t *testing.T) {
	result, report, err := newTestNormalizer().Normalize(testInputs(t))
	require.NoError(t, err)

	// sorted by name, African only
	names := make([]string, len(result.Countries))
	for i, c := range result.Countries {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Democratic Republic of the Congo", "Kenya", "Nigeria"}, names)

	want := []contracts.TrendDatum{
		{Date: d(1), Confirmed: 0, Deaths: 0, Recoveries: 0, NewCase: 0, NewDeaths: 0, NewRecoveries: 0, DaysSinceFirstCase: 0},
		{Date: d(2), Confirmed: 2, Deaths: 0, Recoveries: 0, NewCase: 2, NewDeaths: 0, NewRecoveries: 0, DaysSinceFirstCase: 0},
		{Date: d(3), Confirmed: 5, Deaths: 1, Recoveries: 2, NewCase: 3, NewDeaths: 1, NewRecoveries: 2, DaysSinceFirstCase: 1},
	}
	if diff := cmp.Diff(want, result.Trends["NGA"]); diff != "" {
		t.Errorf("NGA series mismatch (-want +got):\n%s", diff)
	}

	// Kenya has no recovered row: zeros
	ken := result.Trends["KEN"]
	require.Len(t, ken, 3)
	assert.Equal(t, int64(0), ken[2].Recoveries)
	assert.Equal(t, []string{"KEN"}, report.MissingMetricRows[SourceRecovered])

	// non-numeric cell counts as 0
	cod := result.Trends["COD"]
	assert.Equal(t, int64(0), cod[1].Confirmed)
	assert.Equal(t, int64(3), cod[2].NewCase)
	assert.Equal(t, 1, report.BadCells)

	assert.Equal(t, 1, report.SubnationalRows)
	assert.Contains(t, report.Unresolved[SourceConfirmed], "Atlantis")
	assert.Greater(t, report.OutsideContinent, 0)
	assert.Equal(t, 3, report.Countries)
	assert.Equal(t, d(1), report.FirstDate)
	assert.Equal(t, d(3), report.LastDate)
}

func TestNormalize_Stats(t *testing.T) {
	result, report, err := newTestNormalizer().Normalize(testInputs(t))
	require.NoError(t, err)

	nga := result.Stats["NGA"]
	require.NotNil(t, nga.Population)
	assert.Equal(t, int64(206139589), *nga.Population)
	assert.Equal(t, 4.2, nga.LogUrbanPopulation)
	assert.Equal(t, -1.3, nga.LogPhysicians)
	assert.Equal(t, 42, nga.NRows)
	assert.Equal(t, geo.WesternAfrica, nga.Region)

	// covariates row without a population row keeps a nil population
	cod, ok := result.Stats["COD"]
	require.True(t, ok)
	assert.Nil(t, cod.Population)
	assert.Equal(t, []string{"COD"}, report.MissingPopulation)
	assert.Contains(t, report.Unresolved[SourcePopulation], "Narnia")
}

func TestNormalize_Predictions(t *testing.T) {
	result, report, err := newTestNormalizer().Normalize(testInputs(t))
	require.NoError(t, err)

	nga := result.Predictions["NGA"]
	require.Len(t, nga, 2)
	assert.Equal(t, d(4), nga[0].Date, "forecast rows are sorted by date")
	assert.True(t, nga[0].IsPrediction)
	assert.Equal(t, 3.0, *nga[0].DailyPrediction)
	assert.Nil(t, nga[0].Exposure)
	assert.Equal(t, 0.1, *nga[1].Exposure)

	assert.NotContains(t, result.Predictions, "USA")
	assert.NotContains(t, result.Predictions, "KEN")
	assert.Equal(t, 1, report.BadForecastRows)
	assert.Contains(t, report.Unresolved[SourceForecast], "ZZZ")
	assert.Equal(t, 1, report.Predictions)
}

func TestNormalize_OptionalTablesMissing(t *testing.T) {
	in := testInputs(t)
	in.Covariates, in.Population, in.Forecast = nil, nil, nil

	result, _, err := newTestNormalizer().Normalize(in)
	require.NoError(t, err)
	assert.Len(t, result.Trends, 3)
	assert.Empty(t, result.Stats)
	assert.Empty(t, result.Predictions)
}

func TestNormalize_Errors(t *testing.T) {
	n := newTestNormalizer()

	_, _, err := n.Normalize(Inputs{})
	assert.Error(t, err)

	in := testInputs(t)
	in.Confirmed = table(t, SourceConfirmed, "Country/Region,3/1/20\nNigeria,1\n")
	_, _, err = n.Normalize(in)
	assert.Error(t, err, "missing province column")

	in.Confirmed = table(t, SourceConfirmed, "Province/State,Country/Region\n,Nigeria\n")
	_, _, err = n.Normalize(in)
	assert.Error(t, err, "no date columns")
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"1,234", 1234, false},
		{"7.0", 7, false},
		{"-3", -3, false},
		{"", 0, true},
		{"n/a", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCount(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}
