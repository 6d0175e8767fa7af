package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/config"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/dedupe"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/importer"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/scheduler"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/tasks"
)

// DaemonCommand runs the pipeline as a long-lived process: task workers plus
// cron-scheduled import, dedupe and purge jobs.
type DaemonCommand struct {
	DatabasePath string
	DataDir      string
	ImportNow    bool
	Verbose      bool

	cfg *config.Config
}

func NewDaemonCommand() *DaemonCommand {
	return &DaemonCommand{}
}

func (cmd *DaemonCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("daemon", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the local database file")
	fs.StringVar(&cmd.DataDir, "data", cmd.cfg.Data.Dir, "Data directory containing flights/, forex/ and geo/ subdirectories")
	fs.BoolVar(&cmd.ImportNow, "import-now", false, "Enqueue an import immediately on startup instead of waiting for the schedule")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s daemon [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run the ingestion pipeline as a long-lived process. Imports, duplicate\n")
		fmt.Fprintf(os.Stderr, "reconciliation and TTL purges run on cron schedules via a task queue.\n\n")
		fmt.Fprintf(os.Stderr, "Schedules and worker counts come from the environment:\n")
		fmt.Fprintf(os.Stderr, "  IMPORT_SCHEDULE   cron expression for imports (default '*/30 * * * *')\n")
		fmt.Fprintf(os.Stderr, "  DEDUPE_SCHEDULE   cron expression for dedupe and purge (default '0 * * * *')\n")
		fmt.Fprintf(os.Stderr, "  TASK_WORKERS      concurrent task workers (default 2)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *DaemonCommand) Run() error {
	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	cmd.DatabasePath = absDBPath

	absDataDir, err := filepath.Abs(cmd.DataDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}
	cmd.DataDir = absDataDir

	log.Printf("Starting pipeline daemon (db: %s, data: %s)", cmd.DatabasePath, cmd.DataDir)

	s, err := store.Open(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	coord := importer.New(s, cmd.DataDir, importer.Options{
		Verbose:        cmd.Verbose,
		EnhancedSchema: cmd.cfg.ImportSchedule.EnhancedSchema,
	})
	reconciler := dedupe.New(s)

	taskClient, err := tasks.NewClient(cmd.DatabasePath, tasks.Config{
		Workers:           cmd.cfg.Tasks.Workers,
		MaxRetries:        cmd.cfg.Tasks.MaxRetries,
		RetryDelay:        cmd.cfg.Tasks.RetryDelay,
		TaskTimeout:       cmd.cfg.Tasks.TaskTimeout,
		ReleaseAfter:      cmd.cfg.Tasks.ReleaseAfter,
		CleanupInterval:   cmd.cfg.Tasks.CleanupInterval,
		RetentionDuration: cmd.cfg.Tasks.RetentionDuration,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}()

	taskClient.Register(
		tasks.NewImportDocumentsQueue(coord),
		tasks.NewDedupeDocumentsQueue(reconciler),
		tasks.NewPurgeExpiredQueue(s),
	)

	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()
	go taskClient.Start(taskCtx)

	sched := scheduler.NewPipelineScheduler(taskClient, cmd.cfg.ImportSchedule, cmd.cfg.DedupeSchedule)
	if err := sched.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if cmd.ImportNow {
		if err := sched.RunImportNow(); err != nil {
			log.Printf("Failed to enqueue startup import: %v", err)
		}
	}

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	timeout := time.Duration(cmd.cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	log.Printf("Shutting down, waiting up to %v for running tasks", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sched.Stop()
	taskClient.Stop(ctx)
	taskCancel()

	log.Println("Daemon exiting")
	return nil
}
