package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/africa-covid/backend/internal/api"
	"github.com/wonny/africa-covid/backend/internal/api/handlers"
	"github.com/wonny/africa-covid/backend/internal/api/ws"
	"github.com/wonny/africa-covid/backend/internal/scheduler"
	"github.com/wonny/africa-covid/backend/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 아카이브 스냅샷으로 warm start (DATABASE_URL 설정 시)
- 첫 수집을 백그라운드로 실행
- 스케줄러로 주기적 refresh 실행
- HTTP API 와 websocket 알림 제공

Endpoints:
  GET  /country/                     - 국가 목록
  GET  /country/trends               - 전체 국가 추이 (예측 포함)
  GET  /country/africa/trends        - 아프리카 합계 추이
  GET  /country/{country}/trends     - 국가별 추이
  GET  /country/{country}/stats      - 국가 통계
  GET  /region/trends                - 지역별 합계 추이
  GET  /region/stats                 - 지역 인구
  GET  /health                       - Health check
  POST /admin/refresh                - 수동 refresh

Example:
  go run ./cmd/dashboard api
  go run ./cmd/dashboard api --port 9000 --no-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	noScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "scheduled refresh 비활성화")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Africa COVID-19 API Server ===")

	// 1. Load config
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":       cfg.Port,
		"env":        cfg.Env,
		"continents": cfg.Ingest.TrackedContinents,
		"cache":      cfg.Cache.Backend,
	}).Info("Initializing API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Wire components
	a, err := newApp(ctx, cfg, log, appOptions{archive: true, cache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// 3. Websocket hub (subscribed before the first publish)
	hub := ws.NewHub(a.store, originChecker(cfg.CORSOrigins), log)
	a.store.Subscribe(hub.Notify)
	defer hub.Close()

	// 4. Warm start, then first ingestion in the background
	a.warmStart(ctx)
	go func() {
		if _, err := a.pipeline.Run(ctx); err != nil {
			log.WithError(err).Error("Initial refresh failed")
		}
	}()

	// 5. Scheduler
	var sched *scheduler.Scheduler
	if !noScheduler {
		sched = scheduler.New(log, scheduler.WithRetry(cfg.Ingest.MaxRetries, time.Minute))
		if err := sched.AddJob(jobs.NewRefreshJob(a.pipeline, cfg.Ingest.RefreshSchedule, cfg.Ingest.RefreshTimeout, log)); err != nil {
			return err
		}
		if a.archive != nil {
			if err := sched.AddJob(jobs.NewArchivePruneJob(a.archive, cfg.Database.ArchiveRetention, log)); err != nil {
				return err
			}
		}
		sched.Start()
	}

	// 6. Router + server
	var dbHealth handlers.DBHealth
	if a.db != nil {
		dbHealth = a.db
	}
	router := api.NewRouter(api.Handlers{
		Country: handlers.NewCountryHandler(a.service, log),
		Region:  handlers.NewRegionHandler(a.service, log),
		Admin:   handlers.NewAdminHandler(a.store, a.pipeline, dbHealth, cfg.Ingest.RefreshTimeout, log),
		WS:      hub,
	}, cfg, log)
	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// originChecker mirrors the CORS origin list for websocket upgrades
func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
