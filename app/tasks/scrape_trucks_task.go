package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ScrapeTrucksTask struct {
	Task
	scraper Scraper
}

func NewScrapeTrucksTask(scraper Scraper, trigger string) *ScrapeTrucksTask {
	return &ScrapeTrucksTask{
		Task:    NewTask(TaskTypeScrapeTrucks, trigger),
		scraper: scraper,
	}
}

func (t *ScrapeTrucksTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.scraper.RunTruckScrape(ctx)
	if err != nil {
		return fmt.Errorf("failed to run truck scrape: %w", err)
	}

	if result.AlreadyRunning {
		slog.Info("Task skipped", "type", "ScrapeTrucks", "trigger", t.Trigger, "reason", "already running")
		return nil
	}

	slog.Info("Task completed",
		"type", "ScrapeTrucks",
		"trigger", t.Trigger,
		"run_id", result.RunID,
		"duration", t.GetDuration(),
		"trucks", len(result.Trucks),
		"failures", len(result.Failures))

	return nil
}
