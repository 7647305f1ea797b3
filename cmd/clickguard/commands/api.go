package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgozlan/clickguard/internal/api"
	"github.com/dgozlan/clickguard/internal/api/handlers"
	"github.com/dgozlan/clickguard/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the ops API server",
	Long: `Starts the HTTP ops API server.

Endpoints:
  GET  /health               - Health check
  GET  /api/signals          - Signal rows for one day
  GET  /api/signals/summary  - Cached per-day flag counts
  POST /api/pipeline/run     - Trigger a signal run
  GET  /api/pipeline/status  - Last run result

Example:
  go run ./cmd/clickguard api
  go run ./cmd/clickguard api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ClickGuard API Server ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	cache := redis.NewCache(d.rdb, "clickguard")

	signalHandler := handlers.NewSignalHandler(d.sigs, cache, d.log)
	pipelineHandler := handlers.NewPipelineHandler(d.newBuilder(), d.cfg.Pipeline.PeriodDays, cache, d.log)

	router := api.NewRouter(signalHandler, pipelineHandler, d.log)
	server := api.New(d.cfg, d.log, router)

	// Serve until interrupted
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
