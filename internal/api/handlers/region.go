package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/africa-covid/backend/internal/query"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// RegionHandler serves region rollups
type RegionHandler struct {
	svc    *query.Service
	logger *logger.Logger
}

// NewRegionHandler creates a new region handler
func NewRegionHandler(svc *query.Service, log *logger.Logger) *RegionHandler {
	return &RegionHandler{
		svc:    svc,
		logger: log.Module("api"),
	}
}

// List returns the regions and their countries
// GET /region/
func (h *RegionHandler) List(w http.ResponseWriter, r *http.Request) {
	regions, err := h.svc.Regions()
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, regions)
}

// AllTrends returns every region rollup
// GET /region/trends
func (h *RegionHandler) AllTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.svc.RegionTrends(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, trends)
}

// Trends returns one region rollup
// GET /region/{region}/trends?startDate&endDate
func (h *RegionHandler) Trends(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.svc.RegionTrend(r.Context(), mux.Vars(r)["region"], start, end)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Stats returns the population rollup per region
// GET /region/stats
func (h *RegionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.RegionStats()
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
