package commands

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/ingest"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCount(tt.in))
	}

	assert.Equal(t, "-", formatOptional(nil))
	assert.Equal(t, "1,235", formatOptional(contracts.Float(1234.6)))
}

func TestParseDateRange(t *testing.T) {
	start, end, err := parseDateRange("2020-04-01", "2020-04-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2020, 4, 30, 0, 0, 0, 0, time.UTC), end)

	start, end, err = parseDateRange("", "")
	require.NoError(t, err)
	assert.True(t, start.IsZero() && end.IsZero())

	_, _, err = parseDateRange("04/01/2020", "")
	assert.Error(t, err)
	_, _, err = parseDateRange("2020-04-30", "2020-04-01")
	assert.Error(t, err)
}

func TestPrintSeries(t *testing.T) {
	var buf bytes.Buffer
	PrintSeries(&buf, "Nigeria (NGA)", []contracts.TrendDatum{
		{Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), Confirmed: 1200, NewCase: 200},
		{Date: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), IsPrediction: true, ConfirmedPrediction: contracts.Float(1300)},
	})

	out := buf.String()
	assert.Contains(t, out, "Nigeria (NGA)")
	assert.Contains(t, out, "2020-03-01")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "2020-03-02*")
	assert.Contains(t, out, "1,300")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, &ingest.Report{
		Countries:         54,
		Unresolved:        map[string][]string{"confirmed": {"Atlantis"}},
		MissingPopulation: []string{"ESH"},
		SkippedSources:    []string{"covariates"},
	})

	out := buf.String()
	assert.Contains(t, out, "54")
	assert.Contains(t, out, "1 unresolved names")
	assert.Contains(t, out, "confirmed: Atlantis")
	assert.Contains(t, out, "no population: ESH")
	assert.Contains(t, out, "skipped optional sources: covariates")
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker([]string{"*"}))
	assert.Nil(t, originChecker(nil))

	check := originChecker([]string{"https://dashboard.example"})
	require.NotNil(t, check)

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req), "no Origin header")
	req.Header.Set("Origin", "https://dashboard.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}
