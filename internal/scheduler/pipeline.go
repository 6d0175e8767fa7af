// Package scheduler runs the periodic pipeline jobs: snapshot imports,
// duplicate reconciliation and TTL purges. Jobs are enqueued onto the task
// queue rather than executed inline, so a slow import never blocks the cron
// loop.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/config"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/tasks"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks that a schedule string parses as a standard
// five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// NextRunTime returns the next firing time of a schedule, relative to now.
func NextRunTime(schedule string) (time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(time.Now()), nil
}

// PipelineScheduler manages the periodic import and dedupe jobs.
type PipelineScheduler struct {
	tasks     *tasks.Client
	importCfg config.ImportSchedule
	dedupeCfg config.DedupeSchedule

	cron       *cron.Cron
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewPipelineScheduler creates a new scheduler instance.
func NewPipelineScheduler(client *tasks.Client, importCfg config.ImportSchedule, dedupeCfg config.DedupeSchedule) *PipelineScheduler {
	return &PipelineScheduler{
		tasks:     client,
		importCfg: importCfg,
		dedupeCfg: dedupeCfg,
		cron:      cron.New(cron.WithParser(cronParser)),
	}
}

// Start begins the scheduler for every enabled job.
func (s *PipelineScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	scheduled := 0

	if s.importCfg.Enabled {
		if err := ValidateCronSchedule(s.importCfg.Schedule); err != nil {
			return fmt.Errorf("invalid import schedule '%s': %w", s.importCfg.Schedule, err)
		}
		if _, err := s.cron.AddFunc(s.importCfg.Schedule, s.enqueueImport); err != nil {
			return fmt.Errorf("failed to schedule import job: %w", err)
		}
		nextRun, _ := NextRunTime(s.importCfg.Schedule)
		log.Printf("Import job scheduled '%s'. Next run: %v", s.importCfg.Schedule, nextRun)
		scheduled++
	} else {
		log.Printf("Import job: disabled")
	}

	if s.dedupeCfg.Enabled {
		if err := ValidateCronSchedule(s.dedupeCfg.Schedule); err != nil {
			return fmt.Errorf("invalid dedupe schedule '%s': %w", s.dedupeCfg.Schedule, err)
		}
		if _, err := s.cron.AddFunc(s.dedupeCfg.Schedule, s.enqueueDedupe); err != nil {
			return fmt.Errorf("failed to schedule dedupe job: %w", err)
		}
		nextRun, _ := NextRunTime(s.dedupeCfg.Schedule)
		log.Printf("Dedupe job scheduled '%s'. Next run: %v", s.dedupeCfg.Schedule, nextRun)
		scheduled++
	} else {
		log.Printf("Dedupe job: disabled")
	}

	if scheduled == 0 {
		log.Printf("Pipeline scheduler: nothing to schedule")
		return nil
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *PipelineScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Pipeline scheduler: stopped")
}

// RunImportNow enqueues an immediate import, bypassing the schedule.
func (s *PipelineScheduler) RunImportNow() error {
	_, err := s.tasks.Add(tasks.ImportDocumentsTask{}).Save()
	return err
}

// IsRunning returns whether the scheduler is active.
func (s *PipelineScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *PipelineScheduler) enqueueImport() {
	if _, err := s.tasks.Add(tasks.ImportDocumentsTask{}).Save(); err != nil {
		log.Printf("Pipeline scheduler: failed to enqueue import: %v", err)
		return
	}
	log.Printf("Pipeline scheduler: import enqueued")
}

// enqueueDedupe reconciles every collection and sweeps expired documents in
// the same beat.
func (s *PipelineScheduler) enqueueDedupe() {
	if _, err := s.tasks.Add(tasks.DedupeDocumentsTask{}).Save(); err != nil {
		log.Printf("Pipeline scheduler: failed to enqueue dedupe: %v", err)
		return
	}
	if _, err := s.tasks.Add(tasks.PurgeExpiredTask{}).Save(); err != nil {
		log.Printf("Pipeline scheduler: failed to enqueue purge: %v", err)
		return
	}
	log.Printf("Pipeline scheduler: dedupe and purge enqueued")
}
