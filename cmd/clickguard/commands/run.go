package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the signal pipeline once",
	Long: `Runs one signal pipeline pass: fetch click events and performance
aggregates, compute the per-key features, merge, and upsert the
resulting fraud signal rows.

The snapshot instant defaults to now (UTC). Pass --as-of to backfill a
past day; the same code path recomputes and fully replaces the rows for
the affected keys.

Example:
  go run ./cmd/clickguard run
  go run ./cmd/clickguard run --as-of 2026-08-28
  go run ./cmd/clickguard run --as-of 2026-08-28T23:59:59Z --days 3`,
	RunE: runPipeline,
}

var (
	runAsOf string
	runDays int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runAsOf, "as-of", "", "snapshot instant (RFC3339 or YYYY-MM-DD, default now)")
	runCmd.Flags().IntVar(&runDays, "days", 0, "trailing days of click events to process (default from config)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	asOf := time.Now().UTC()
	if runAsOf != "" {
		asOf, err = parseTimeFlag(runAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
	}

	days := d.cfg.Pipeline.PeriodDays
	if runDays > 0 {
		days = runDays
	}

	fmt.Println("=== ClickGuard Signal Run ===")
	fmt.Printf("As of:  %s\n", asOf.Format(time.RFC3339))
	fmt.Printf("Period: %d day(s)\n\n", days)

	result, err := d.newBuilder().Build(context.Background(), asOf, days)
	if err != nil {
		return fmt.Errorf("signal run: %w", err)
	}

	fmt.Println("Run completed:")
	fmt.Printf("  Click events:  %d\n", result.EventCount)
	fmt.Printf("  Perf records:  %d\n", result.PerfCount)
	fmt.Printf("  Signal rows:   %d\n", result.SignalCount)
	fmt.Printf("  Flagged rows:  %d\n", result.FlaggedCount)
	fmt.Printf("  Duration:      %v\n", result.Duration.Round(time.Millisecond))

	return nil
}

// parseTimeFlag accepts RFC3339 or a bare date. A bare date means end
// of that day so the run covers the whole day's clicks.
func parseTimeFlag(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(24*time.Hour - time.Second), nil
}
