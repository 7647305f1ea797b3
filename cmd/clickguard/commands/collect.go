package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect daily ad performance aggregates",
	Long: `Pulls daily per-ad performance reports from the ad platform and
upserts them into the performance store.

Defaults to yesterday (UTC). Pass --from/--to to backfill a range.

Example:
  go run ./cmd/clickguard collect
  go run ./cmd/clickguard collect --from 2026-08-20 --to 2026-08-28`,
	RunE: runCollect,
}

var (
	collectFrom string
	collectTo   string
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectFrom, "from", "", "first day to collect (YYYY-MM-DD)")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "last day to collect (YYYY-MM-DD)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	col := d.newCollector()
	ctx := context.Background()

	fmt.Println("=== ClickGuard Performance Collection ===")

	if collectFrom == "" && collectTo == "" {
		yesterday := time.Now().UTC().Add(-24 * time.Hour)
		n, err := col.Collect(ctx, yesterday)
		if err != nil {
			return fmt.Errorf("collect: %w", err)
		}
		fmt.Printf("Collected %d row(s) for %s\n", n, yesterday.Format("2006-01-02"))
		return nil
	}

	from, err := time.ParseInLocation("2006-01-02", collectFrom, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to := time.Now().UTC().Add(-24 * time.Hour)
	if collectTo != "" {
		to, err = time.ParseInLocation("2006-01-02", collectTo, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	n, err := col.CollectRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("collect range (%d row(s) written): %w", n, err)
	}
	fmt.Printf("Collected %d row(s) for %s..%s\n", n, from.Format("2006-01-02"), to.Format("2006-01-02"))

	return nil
}
