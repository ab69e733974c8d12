package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/africa-covid/backend/internal/ingest"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "데이터 1회 수집",
	Long: `모든 소스를 한 번 수집/정규화하고 리포트를 출력합니다.

DATABASE_URL 이 설정되어 있으면 결과 스냅샷을 아카이브에 저장합니다.
--dry-run 은 저장 없이 정규화 리포트만 출력합니다.

Example:
  go run ./cmd/dashboard ingest
  go run ./cmd/dashboard ingest --dry-run --json`,
	RunE: runIngest,
}

var (
	ingestDryRun bool
	ingestJSON   bool
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "정규화만 수행 (publish/archive 없음)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "리포트를 JSON 으로 출력")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, appOptions{archive: !ingestDryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	var report *ingest.Report
	if ingestDryRun {
		_, report, err = a.pipeline.Build(ctx)
	} else {
		report, err = a.pipeline.Run(ctx)
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	out := cmd.OutOrStdout()
	if ingestJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	PrintReport(out, report)
	fmt.Fprintln(out)
	if ingestDryRun {
		PrintSuccess(out, "Dry run completed (nothing published)")
	} else {
		PrintSuccess(out, fmt.Sprintf("Snapshot generation %d published", report.Generation))
	}
	return nil
}
