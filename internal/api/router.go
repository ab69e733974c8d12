package api

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/wonny/africa-covid/backend/internal/api/handlers"
	"github.com/wonny/africa-covid/backend/internal/metrics"
	"github.com/wonny/africa-covid/backend/pkg/config"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Handlers groups the endpoint handlers; WS may be nil
type Handlers struct {
	Country *handlers.CountryHandler
	Region  *handlers.RegionHandler
	Admin   *handlers.AdminHandler
	WS      http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, cfg *config.Config, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Operations
	r.HandleFunc("/health", h.Admin.Health).Methods("GET")
	r.Handle("/admin/refresh", adminAuthMiddleware(cfg, log)(http.HandlerFunc(h.Admin.Refresh))).Methods("POST")
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
	if h.WS != nil {
		r.Handle("/ws", h.WS).Methods("GET")
	}

	// Country endpoints (fixed paths before {country})
	r.HandleFunc("/country", h.Country.List).Methods("GET")
	r.HandleFunc("/country/", h.Country.List).Methods("GET")
	r.HandleFunc("/country/trends", h.Country.AllTrends).Methods("GET")
	r.HandleFunc("/country/stats", h.Country.AllStats).Methods("GET")
	r.HandleFunc("/country/africa/trends", h.Country.AfricaTrends).Methods("GET")
	r.HandleFunc("/country/{country}/trends", h.Country.Trends).Methods("GET")
	r.HandleFunc("/country/{country}/stats", h.Country.Stats).Methods("GET")

	// Continent / region rollups
	r.HandleFunc("/continent/{continent}/trends", h.Country.ContinentTrends).Methods("GET")
	r.HandleFunc("/region", h.Region.List).Methods("GET")
	r.HandleFunc("/region/", h.Region.List).Methods("GET")
	r.HandleFunc("/region/trends", h.Region.AllTrends).Methods("GET")
	r.HandleFunc("/region/stats", h.Region.Stats).Methods("GET")
	r.HandleFunc("/region/{region}/trends", h.Region.Trends).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return c.Handler(r)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// statusRecorder captures the response code for logs and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack passes websocket upgrades through to the underlying writer
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// adminAuthMiddleware guards admin endpoints with the ADMIN_TOKEN bearer token.
// Without a token they stay open in development and answer 403 elsewhere.
func adminAuthMiddleware(cfg *config.Config, log *logger.Logger) mux.MiddlewareFunc {
	token := cfg.AdminToken
	if token == "" {
		if cfg.Env == "development" {
			log.Warn("ADMIN_TOKEN not set, admin endpoints are open")
		} else {
			log.Warn("ADMIN_TOKEN not set, admin endpoints are disabled")
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				if cfg.Env == "development" {
					next.ServeHTTP(w, r)
					return
				}
				writeJSONError(w, http.StatusForbidden, "Admin endpoints are disabled: ADMIN_TOKEN not set")
				return
			}

			scheme, given, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") ||
				subtle.ConstantTimeCompare([]byte(strings.TrimSpace(given)), []byte(token)) != 1 {
				log.WithFields(map[string]interface{}{
					"path":   r.URL.Path,
					"remote": r.RemoteAddr,
				}).Warn("Admin request rejected")
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs HTTP requests and counts them per route
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
