package tasks

import (
	"context"

	"github.com/lysyi3m/dining-comb/app/orchestrator"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background scraping.
// Example usage:
//
//	scheduler := NewScheduler(orch, gate, sourceCache)
//	if err := scheduler.Start(); err != nil { ... }
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewScrapeTrucksTask(orch, "api"))
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	EnqueueTask(task TaskInterface) error
}

type Scraper interface {
	RunFullScrape(ctx context.Context) (*orchestrator.ScrapeResult, error)
	RunTruckScrape(ctx context.Context) (*orchestrator.ScrapeResult, error)
}

type FreshnessChecker interface {
	IsCurrent(ctx context.Context) (bool, error)
}

type SourceLoader interface {
	Run() error
	Count() int
}
