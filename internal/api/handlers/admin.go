package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/ingest"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
	"github.com/wonny/africa-covid/backend/pkg/database"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Refresher runs one ingestion (implemented by ingest.Pipeline)
type Refresher interface {
	Run(ctx context.Context) (*ingest.Report, error)
}

// DBHealth reports archive database health (implemented by database.DB)
type DBHealth interface {
	HealthCheck(ctx context.Context) database.HealthStatus
}

// AdminHandler serves health and manual refresh
type AdminHandler struct {
	store     *snapshot.Store
	refresher Refresher
	db        DBHealth
	timeout   time.Duration
	logger    *logger.Logger
}

// NewAdminHandler creates a new admin handler; db may be nil
func NewAdminHandler(store *snapshot.Store, refresher Refresher, db DBHealth, refreshTimeout time.Duration, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		store:     store,
		refresher: refresher,
		db:        db,
		timeout:   refreshTimeout,
		logger:    log.Module("api"),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string                 `json:"status"` // ok, loading, unavailable
	Service  string                 `json:"service"`
	Snapshot snapshot.Status        `json:"snapshot"`
	Database *database.HealthStatus `json:"database,omitempty"`
}

// Health reports the snapshot lifecycle; 503 until the first publish
// GET /health
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.store.Status()
	resp := HealthResponse{
		Status:   "ok",
		Service:  "africa-covid-api",
		Snapshot: status,
	}

	code := http.StatusOK
	switch status.State {
	case snapshot.StateUninitialized, snapshot.StateLoading:
		resp.Status = "loading"
		code = http.StatusServiceUnavailable
	case snapshot.StateFailed:
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := h.db.HealthCheck(ctx)
		resp.Database = &dbStatus
	}

	respondJSON(w, code, resp)
}

// Refresh triggers an ingestion run.
// By default it runs in the background (202); ?wait=true waits for the report.
// POST /admin/refresh
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	wait, err := parseBool(r, "wait", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if wait {
		report, err := h.refresher.Run(r.Context())
		if err != nil {
			if errors.Is(err, contracts.ErrRefreshInProgress) {
				respondServiceError(w, h.logger, err)
				return
			}
			h.logger.WithError(err).Error("Manual refresh failed")
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, report)
		return
	}

	switch h.store.Status().State {
	case snapshot.StateLoading, snapshot.StateRefreshing:
		respondServiceError(w, h.logger, contracts.ErrRefreshInProgress)
		return
	}

	go func() {
		ctx := context.Background()
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		if _, err := h.refresher.Run(ctx); err != nil {
			h.logger.WithError(err).Warn("Manual refresh failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "refresh started",
	})
}
