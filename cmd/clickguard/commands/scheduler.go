package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgozlan/clickguard/internal/scheduler"
	"github.com/dgozlan/clickguard/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the job scheduler",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
  performance_collection - 01:30 UTC daily (pull yesterday's report)
  signal_run             - 02:30 UTC daily (compute fraud signals)

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job immediately

Example:
  go run ./cmd/clickguard scheduler start
  go run ./cmd/clickguard scheduler list
  go run ./cmd/clickguard scheduler run signal_run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler wires the scheduler with its jobs.
func initScheduler(d *deps) (*scheduler.Scheduler, error) {
	sched := scheduler.New(d.log)

	collectionJob := jobs.NewPerformanceCollectionJob(d.newCollector(), d.log)
	if err := sched.AddJob(collectionJob); err != nil {
		return nil, fmt.Errorf("add %s: %w", collectionJob.Name(), err)
	}

	signalJob := jobs.NewSignalRunJob(d.newBuilder(), d.cfg.Pipeline.PeriodDays, d.log)
	if err := sched.AddJob(signalJob); err != nil {
		return nil, fmt.Errorf("add %s: %w", signalJob.Name(), err)
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ClickGuard Scheduler ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	sched, err := initScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\nScheduler started. Registered jobs:")
	for _, jobName := range sched.ListJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	sched, err := initScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for name, stats := range sched.GetJobStats() {
		fmt.Printf("  - %-24s %s\n", name, stats.Schedule)
	}

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	sched, err := initScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is async; poll history until the run lands.
	for {
		time.Sleep(500 * time.Millisecond)

		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return err
		}
		latest := history.Latest()
		if latest == nil {
			continue
		}

		if latest.Success {
			fmt.Printf("Job %s completed in %v\n", jobName, latest.Duration.Round(time.Millisecond))
			return nil
		}
		return fmt.Errorf("job %s failed: %s", jobName, latest.Error)
	}
}
