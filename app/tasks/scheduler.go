package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/dining-comb/app/cfg"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const defaultSourcesCron = "*/5 * * * *"

type Options struct {
	WorkerCount int
	MenuCron    string
	TruckCron   string
	SourcesCron string
	Location    *time.Location
}

type Scheduler struct {
	scraper    Scraper
	gate       FreshnessChecker
	loader     SourceLoader
	opts       Options
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	taskQueue  chan TaskInterface
	retryBase  time.Duration
	runStartup bool
}

func NewScheduler(scraper Scraper, gate FreshnessChecker, loader SourceLoader) *Scheduler {
	c := cfg.Get()
	return newScheduler(scraper, gate, loader, Options{
		WorkerCount: c.WorkerCount,
		MenuCron:    c.MenuCron,
		TruckCron:   c.TruckCron,
		SourcesCron: defaultSourcesCron,
		Location:    c.Location,
	})
}

func newScheduler(scraper Scraper, gate FreshnessChecker, loader SourceLoader, opts Options) *Scheduler {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		scraper:    scraper,
		gate:       gate,
		loader:     loader,
		opts:       opts,
		cron:       cron.New(cron.WithLocation(opts.Location), cron.WithLogger(cronLogger{})),
		ctx:        ctx,
		cancel:     cancel,
		taskQueue:  make(chan TaskInterface, 300),
		retryBase:  time.Second,
		runStartup: true,
	}
}

// Start launches the worker pool and registers the cron entries. An invalid
// cron spec is returned before anything is started.
func (s *Scheduler) Start() error {
	entries := []struct {
		spec string
		make func() TaskInterface
	}{
		{s.opts.MenuCron, func() TaskInterface { return NewScrapeMenusTask(s.scraper, s.gate, "cron", false) }},
		{s.opts.TruckCron, func() TaskInterface { return NewScrapeTrucksTask(s.scraper, "cron") }},
		{s.opts.SourcesCron, func() TaskInterface { return NewSyncSourcesTask(s.loader, "cron") }},
	}

	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, func() { s.enqueue(e.make()) }); err != nil {
			return fmt.Errorf("failed to register cron spec '%s': %w", e.spec, err)
		}
	}

	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.runStartup {
		s.enqueueStartupTasks()
	}
	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueue(task TaskInterface) {
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "trigger", task.GetTrigger(), "error", err)
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	s.enqueue(NewScrapeMenusTask(s.scraper, s.gate, "startup", false))
	s.enqueue(NewScrapeTrucksTask(s.scraper, "startup"))
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

// executeTask runs a task without a deadline; scrape cycles run to completion
// unless the scheduler stops.
func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	err := task.Execute(s.ctx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := s.retryBase * time.Duration(1<<uint(task.GetRetryCount()-1))
			if retryDelay > 30*s.retryBase {
				retryDelay = 30 * s.retryBase
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "trigger", task.GetTrigger(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
