package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
)

func sampleData() snapshot.Data {
	pop := int64(206139589)
	return snapshot.Data{
		Countries: []contracts.CountryIdentity{{Name: "Nigeria", ISO3: "NGA", Continent: "Africa", Region: "Western Africa"}},
		Trends: contracts.CountryTrendDict{
			"NGA": {{Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), Confirmed: 1, NewCase: 1}},
		},
		Predictions: contracts.PredictionDict{
			"NGA": {{Date: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), IsPrediction: true, DailyPrediction: contracts.Float(2.5)}},
		},
		Stats:  map[string]contracts.CountryStats{"NGA": {Name: "Nigeria", ISO3: "NGA", Population: &pop, NRows: 3}},
		Source: "ingest",
	}
}

func TestEncodeDecode(t *testing.T) {
	in := sampleData()
	raw, err := encode(in)
	require.NoError(t, err)

	out, err := decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "archive", out.Source, "restored snapshots are tagged as archive")
	out.Source = in.Source
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("archive round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	out, err := decode([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, out.Trends)
	assert.NotNil(t, out.Predictions)
	assert.NotNil(t, out.Stats)

	_, err = decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestRepository_Integration(t *testing.T) {
	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	for gen := uint64(1); gen <= 3; gen++ {
		require.NoError(t, repo.Save(ctx, &snapshot.Snapshot{Data: sampleData(), Generation: gen, LoadedAt: time.Now()}))
	}

	latest, err := repo.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), latest.Generation)
	assert.Len(t, latest.Data.Trends["NGA"], 1)

	_, err = repo.Prune(ctx, 1)
	require.NoError(t, err)

	latest, err = repo.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), latest.Generation)
}
