package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgozlan/clickguard/pkg/config"
	"github.com/dgozlan/clickguard/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the PostgreSQL connection",
	Long: `Tests the database connection and checks the pipeline tables.

This command:
- loads DATABASE_URL from config
- opens a connection pool and pings it
- verifies the pipeline tables exist
- prints pool statistics

Example:
  go run ./cmd/clickguard test-db
  go run ./cmd/clickguard test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

// pipelineTables are the tables the pipeline reads and writes.
var pipelineTables = []string{"raw_clicks", "ad_performance", "fraud_signals"}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ClickGuard Database Connection Test ===")

	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	fmt.Println("Connecting to database...")
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Println("Testing connection (Ping)...")
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping database: %w", err)
	}
	fmt.Println("✅ Ping successful")

	fmt.Println("Checking pipeline tables...")
	for _, table := range pipelineTables {
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
			table,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("❌ Failed to check table %s: %w", table, err)
		}
		if exists {
			fmt.Printf("✅ Table %s exists\n", table)
		} else {
			fmt.Printf("❌ Table %s is missing\n", table)
		}
	}

	stats := db.Stats()
	fmt.Println("\nConnection Pool Statistics:")
	fmt.Printf("   Max Connections:   %d\n", stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", stats.TotalConns)
	fmt.Printf("   Idle Connections:  %d\n", stats.IdleConns)

	fmt.Println("\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password part of a connection URL.
func maskPassword(url string) string {
	atIdx := strings.Index(url, "@")
	if atIdx == -1 {
		return url
	}
	schemeIdx := strings.Index(url, "://")
	if schemeIdx == -1 {
		return url
	}
	creds := url[schemeIdx+3 : atIdx]
	colonIdx := strings.Index(creds, ":")
	if colonIdx == -1 {
		return url
	}
	return url[:schemeIdx+3] + creds[:colonIdx] + ":****" + url[atIdx:]
}
