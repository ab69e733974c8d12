package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/africa-covid/backend/internal/geo"
	"github.com/wonny/africa-covid/backend/internal/query"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// CountryHandler serves country and continent endpoints
// ⭐ SSOT: 국가/대륙 API 핸들러는 이 구조체에서만
type CountryHandler struct {
	svc    *query.Service
	logger *logger.Logger
}

// NewCountryHandler creates a new country handler
func NewCountryHandler(svc *query.Service, log *logger.Logger) *CountryHandler {
	return &CountryHandler{
		svc:    svc,
		logger: log.Module("api"),
	}
}

// List returns the available countries
// GET /country/?continent=
func (h *CountryHandler) List(w http.ResponseWriter, r *http.Request) {
	countries, err := h.svc.ListAvailableCountries(r.URL.Query().Get("continent"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, countries)
}

// AllTrends returns every country series spliced with its forecast
// GET /country/trends
func (h *CountryHandler) AllTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.svc.AllTrends()
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, trends)
}

// AfricaTrends returns the Africa rollup
// GET /country/africa/trends?startDate&endDate
func (h *CountryHandler) AfricaTrends(w http.ResponseWriter, r *http.Request) {
	h.continentTrends(w, r, geo.Africa)
}

// ContinentTrends returns the rollup of any tracked continent
// GET /continent/{continent}/trends?startDate&endDate
func (h *CountryHandler) ContinentTrends(w http.ResponseWriter, r *http.Request) {
	h.continentTrends(w, r, mux.Vars(r)["continent"])
}

func (h *CountryHandler) continentTrends(w http.ResponseWriter, r *http.Request, continent string) {
	start, end, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.svc.ContinentTrends(r.Context(), continent, start, end)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Trends returns one country series
// GET /country/{country}/trends?startDate&endDate&prediction
func (h *CountryHandler) Trends(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	withPrediction, err := parseBool(r, "prediction", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.svc.TrendForCountry(mux.Vars(r)["country"], query.TrendQuery{
		Start:             start,
		End:               end,
		IncludePrediction: withPrediction,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Stats returns one country stats record
// GET /country/{country}/stats
func (h *CountryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.StatsForCountry(mux.Vars(r)["country"])
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// AllStats returns every stats record
// GET /country/stats
func (h *CountryHandler) AllStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.AllStats()
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
