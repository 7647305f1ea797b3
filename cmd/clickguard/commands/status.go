package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgozlan/clickguard/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show signal counts for a day",
	Long: `Shows how many signal rows and flagged rows exist for one day.

Defaults to yesterday (UTC).

Example:
  go run ./cmd/clickguard status
  go run ./cmd/clickguard status --date 2026-08-28`,
	RunE: runStatus,
}

var statusDate string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusDate, "date", "", "day to inspect (YYYY-MM-DD, default yesterday)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	day := contracts.DayOf(time.Now().UTC().Add(-24 * time.Hour))
	if statusDate != "" {
		day, err = time.ParseInLocation("2006-01-02", statusDate, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	ctx := context.Background()

	clickCount, err := d.clicks.CountByTimeRange(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("count click events: %w", err)
	}

	rows, err := d.sigs.GetByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("query signals: %w", err)
	}

	var invalidIP, missingDevice, suspiciousCTR, flagged int
	for i := range rows {
		s := &rows[i]
		if s.Flagged() {
			flagged++
		}
		if s.InvalidIPFlag {
			invalidIP++
		}
		if s.MissingDeviceFlag {
			missingDevice++
		}
		if s.SuspiciousCTRFlag {
			suspiciousCTR++
		}
	}

	fmt.Printf("=== ClickGuard Status: %s ===\n\n", day.Format("2006-01-02"))
	fmt.Printf("Click events:    %d\n", clickCount)
	fmt.Printf("Signal rows:     %d\n", len(rows))
	fmt.Printf("Flagged rows:    %d\n", flagged)
	fmt.Printf("  invalid_ip:     %d\n", invalidIP)
	fmt.Printf("  missing_device: %d\n", missingDevice)
	fmt.Printf("  suspicious_ctr: %d\n", suspiciousCTR)

	return nil
}
