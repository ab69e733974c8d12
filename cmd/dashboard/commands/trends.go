package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/geo"
	"github.com/wonny/africa-covid/backend/internal/query"
)

// trendsCmd represents the trends command
var trendsCmd = &cobra.Command{
	Use:   "trends [country]",
	Short: "추이 테이블 출력",
	Long: `스냅샷을 만든 뒤 국가, 지역 또는 대륙 추이를 테이블로 출력합니다.

인자가 없으면 대륙 합계를 출력합니다.
--archive 는 수집 대신 최신 아카이브 스냅샷을 사용합니다 (DATABASE_URL 필요).

Example:
  go run ./cmd/dashboard trends
  go run ./cmd/dashboard trends Nigeria --prediction --last 14
  go run ./cmd/dashboard trends --region "Western Africa" --from 2020-04-01`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrends,
}

var (
	trendsRegion     string
	trendsContinent  string
	trendsFrom       string
	trendsTo         string
	trendsPrediction bool
	trendsLast       int
	trendsArchive    bool
)

func init() {
	rootCmd.AddCommand(trendsCmd)

	trendsCmd.Flags().StringVar(&trendsRegion, "region", "", "지역 합계 (예: \"Western Africa\")")
	trendsCmd.Flags().StringVar(&trendsContinent, "continent", geo.Africa, "대륙 합계")
	trendsCmd.Flags().StringVar(&trendsFrom, "from", "", "시작일 YYYY-MM-DD")
	trendsCmd.Flags().StringVar(&trendsTo, "to", "", "종료일 YYYY-MM-DD")
	trendsCmd.Flags().BoolVar(&trendsPrediction, "prediction", false, "국가 예측 포함")
	trendsCmd.Flags().IntVar(&trendsLast, "last", 0, "마지막 N 일만 출력")
	trendsCmd.Flags().BoolVar(&trendsArchive, "archive", false, "최신 아카이브 스냅샷 사용")
}

func runTrends(cmd *cobra.Command, args []string) error {
	start, end, err := parseDateRange(trendsFrom, trendsTo)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, appOptions{archive: trendsArchive})
	if err != nil {
		return err
	}
	defer a.Close()

	if trendsArchive {
		if a.archive == nil {
			return fmt.Errorf("--archive requires DATABASE_URL")
		}
		if !a.warmStart(ctx) {
			return fmt.Errorf("no archived snapshot found")
		}
	} else if _, err := a.pipeline.Run(ctx); err != nil {
		return err
	}

	title, series, err := selectSeries(ctx, a.service, args, start, end)
	if err != nil {
		return err
	}
	if trendsLast > 0 && len(series) > trendsLast {
		series = series[len(series)-trendsLast:]
	}

	PrintSeries(cmd.OutOrStdout(), title, series)
	return nil
}

// selectSeries picks country, region or continent by the flags
func selectSeries(ctx context.Context, svc *query.Service, args []string, start, end time.Time) (string, []contracts.TrendDatum, error) {
	switch {
	case len(args) == 1:
		id, err := svc.Country(args[0])
		if err != nil {
			return "", nil, err
		}
		series, err := svc.TrendForCountry(id.ISO3, query.TrendQuery{Start: start, End: end, IncludePrediction: trendsPrediction})
		return fmt.Sprintf("%s (%s)", id.Name, id.ISO3), series, err
	case trendsRegion != "":
		series, err := svc.RegionTrend(ctx, trendsRegion, start, end)
		return trendsRegion, series, err
	default:
		series, err := svc.ContinentTrends(ctx, trendsContinent, start, end)
		return trendsContinent, series, err
	}
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse(contracts.DateLayout, from); err != nil {
			return start, end, fmt.Errorf("invalid --from %q (expected YYYY-MM-DD)", from)
		}
	}
	if to != "" {
		if end, err = time.Parse(contracts.DateLayout, to); err != nil {
			return start, end, fmt.Errorf("invalid --to %q (expected YYYY-MM-DD)", to)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("--to is before --from")
	}
	return start, end, nil
}
