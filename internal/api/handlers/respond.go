package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps sentinel errors to status codes
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contracts.ErrNotReady):
		w.Header().Set("Retry-After", "30")
		respondError(w, http.StatusServiceUnavailable, "Data is still loading, try again shortly")
	case errors.Is(err, contracts.ErrRefreshInProgress):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parseWindow reads the optional startDate/endDate (YYYY-MM-DD) parameters
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if v := r.URL.Query().Get("startDate"); v != "" {
		if start, err = time.Parse(contracts.DateLayout, v); err != nil {
			return start, end, fmt.Errorf("invalid 'startDate' (expected YYYY-MM-DD)")
		}
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		if end, err = time.Parse(contracts.DateLayout, v); err != nil {
			return start, end, fmt.Errorf("invalid 'endDate' (expected YYYY-MM-DD)")
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("'endDate' is before 'startDate'")
	}
	return start, end, nil
}

// parseBool reads an optional boolean parameter
func parseBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid '%s' (expected true or false)", name)
	}
	return b, nil
}
