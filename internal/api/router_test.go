package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/africa-covid/backend/internal/api/handlers"
	"github.com/wonny/africa-covid/backend/internal/api/ws"
	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/geo"
	"github.com/wonny/africa-covid/backend/internal/ingest"
	"github.com/wonny/africa-covid/backend/internal/query"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
	"github.com/wonny/africa-covid/backend/internal/trend"
	"github.com/wonny/africa-covid/backend/pkg/config"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

type fakeRefresher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRefresher) Run(ctx context.Context) (*ingest.Report, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Report{Countries: 2}, nil
}

func series(confirmed ...int64) []contracts.TrendDatum {
	out := make([]contracts.TrendDatum, len(confirmed))
	for i, c := range confirmed {
		out[i] = contracts.TrendDatum{
			Date:      time.Date(2020, 3, i+1, 0, 0, 0, 0, time.UTC),
			Confirmed: c,
		}
	}
	trend.DeriveDeltas(out)
	trend.AssignDaysSinceFirstCase(out)
	return out
}

func testData() snapshot.Data {
	nga, _ := geo.Default().ResolveISO3("NGA")
	ken, _ := geo.Default().ResolveISO3("KEN")
	pop := int64(1000)

	return snapshot.Data{
		Countries: []contracts.CountryIdentity{ken, nga},
		Trends: contracts.CountryTrendDict{
			"NGA": series(10, 15, 25),
			"KEN": series(5, 5, 10),
		},
		Predictions: contracts.PredictionDict{
			"NGA": {{
				Date:                 time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC),
				IsPrediction:         true,
				DailyPrediction:      contracts.Float(10),
				DailyPredictionUpper: contracts.Float(15),
				DailyPredictionLower: contracts.Float(5),
			}},
		},
		Stats: map[string]contracts.CountryStats{
			"NGA": {Name: nga.Name, ISO3: nga.ISO3, Region: nga.Region, Population: &pop},
			"KEN": {Name: ken.Name, ISO3: ken.ISO3, Region: ken.Region},
		},
		Source: "ingest",
	}
}

type testEnv struct {
	handler   http.Handler
	store     *snapshot.Store
	refresher *fakeRefresher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, &config.Config{Env: "development", CORSOrigins: []string{"*"}, MetricsEnabled: true})
}

func newTestEnvWith(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	log := logger.Nop()
	store := snapshot.New(clockwork.NewFakeClock(), log)
	svc := query.NewService(store, geo.Default(), query.NewMemoryCache(time.Hour), []string{geo.Africa}, log)
	refresher := &fakeRefresher{}

	h := NewRouter(Handlers{
		Country: handlers.NewCountryHandler(svc, log),
		Region:  handlers.NewRegionHandler(svc, log),
		Admin:   handlers.NewAdminHandler(store, refresher, nil, time.Second, log),
	}, cfg, log)

	return &testEnv{handler: h, store: store, refresher: refresher}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_NotReadyBeforeFirstPublish(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/country/", "/country/africa/trends", "/country/NGA/trends", "/region/trends"} {
		rec := env.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"), path)
	}

	rec := env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decodeBody[handlers.HealthResponse](t, rec)
	assert.Equal(t, "loading", health.Status)
}

func TestRouter_AfricaTrends(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testData())

	rec := env.do(t, http.MethodGet, "/country/africa/trends")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	got := decodeBody[[]contracts.TrendDatum](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, int64(15), got[0].Confirmed)
	assert.Equal(t, int64(20), got[1].Confirmed)
	assert.Equal(t, int64(35), got[2].Confirmed)
	assert.Equal(t, int64(15), got[2].NewCase)

	rec = env.do(t, http.MethodGet, "/country/africa/trends?startDate=2020-03-02&endDate=2020-03-02")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[[]contracts.TrendDatum](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, int64(20), got[0].Confirmed)

	rec = env.do(t, http.MethodGet, "/continent/Africa/trends")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/continent/europe/trends")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CountryTrends(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testData())

	rec := env.do(t, http.MethodGet, "/country/Nigeria/trends")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]contracts.TrendDatum](t, rec), 3)

	rec = env.do(t, http.MethodGet, "/country/NGA/trends?prediction=true")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]contracts.TrendDatum](t, rec)
	require.Len(t, got, 4)
	assert.True(t, got[3].IsPrediction)
	require.NotNil(t, got[3].ConfirmedPrediction)
	assert.Equal(t, 35.0, *got[3].ConfirmedPrediction)

	rec = env.do(t, http.MethodGet, "/country/trends")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[contracts.CountryTrendDict](t, rec)
	assert.Len(t, all["NGA"], 4)
	assert.Len(t, all["KEN"], 3)
}

func TestRouter_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testData())

	tests := []struct {
		path string
		want int
	}{
		{"/country/Atlantis/trends", http.StatusNotFound},
		{"/country/NGA/trends?startDate=03-01-2020", http.StatusBadRequest},
		{"/country/NGA/trends?startDate=2020-03-03&endDate=2020-03-01", http.StatusBadRequest},
		{"/country/NGA/trends?prediction=maybe", http.StatusBadRequest},
		{"/region/nowhere/trends", http.StatusNotFound},
		{"/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path)
			assert.Equal(t, tt.want, rec.Code)
			body := decodeBody[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRouter_StatsAndRegions(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testData())

	rec := env.do(t, http.MethodGet, "/country/NGA/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[contracts.CountryStats](t, rec)
	require.NotNil(t, stats.Population)
	assert.Equal(t, int64(1000), *stats.Population)

	rec = env.do(t, http.MethodGet, "/region/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	regions := decodeBody[map[string]contracts.RegionStats](t, rec)
	assert.Equal(t, int64(1000), regions[geo.WesternAfrica].Population)

	rec = env.do(t, http.MethodGet, "/region/western-africa/trends")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]contracts.TrendDatum](t, rec), 3)

	rec = env.do(t, http.MethodGet, "/region")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Refresh(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testData())

	rec := env.do(t, http.MethodPost, "/admin/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool { return env.refresher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	rec = env.do(t, http.MethodPost, "/admin/refresh?wait=true")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[ingest.Report](t, rec)
	assert.Equal(t, 2, report.Countries)

	require.NoError(t, env.store.BeginRefresh())
	rec = env.do(t, http.MethodPost, "/admin/refresh")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_RefreshRequiresToken(t *testing.T) {
	env := newTestEnvWith(t, &config.Config{Env: "production", AdminToken: "s3cret"})
	env.store.Publish(testData())

	refresh := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/refresh?wait=true", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec
	}

	for _, auth := range []string{"", "Bearer wrong", "Basic s3cret", "s3cret"} {
		rec := refresh(auth)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, auth)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"), auth)
	}
	assert.Equal(t, int32(0), env.refresher.calls.Load())

	rec := refresh("Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), env.refresher.calls.Load())

	// read endpoints stay public
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/country/").Code)
}

func TestRouter_RefreshDisabledWithoutToken(t *testing.T) {
	env := newTestEnvWith(t, &config.Config{Env: "production"})
	env.store.Publish(testData())

	rec := env.do(t, http.MethodPost, "/admin/refresh?wait=true")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, int32(0), env.refresher.calls.Load())
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(testData())

	rec := env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[handlers.HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, snapshot.StateReady, health.Snapshot.State)
	assert.Equal(t, uint64(1), health.Snapshot.Generation)
	assert.Nil(t, health.Database)

	rec = env.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "covid_dashboard_http_requests_total")
}

func TestRouter_CORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_WebsocketThroughMiddleware(t *testing.T) {
	log := logger.Nop()
	store := snapshot.New(clockwork.NewFakeClock(), log)
	svc := query.NewService(store, geo.Default(), nil, []string{geo.Africa}, log)
	hub := ws.NewHub(store, nil, log)
	defer hub.Close()

	h := NewRouter(Handlers{
		Country: handlers.NewCountryHandler(svc, log),
		Region:  handlers.NewRegionHandler(svc, log),
		Admin:   handlers.NewAdminHandler(store, &fakeRefresher{}, nil, time.Second, log),
		WS:      hub,
	}, &config.Config{CORSOrigins: []string{"*"}}, log)

	server := httptest.NewServer(h)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello ws.Event
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
}
