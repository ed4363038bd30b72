package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ScrapeMenusTask struct {
	Task
	scraper Scraper
	gate    FreshnessChecker
	force   bool
}

// NewScrapeMenusTask builds a full scrape task. Unless force is set, the task
// is a no-op when every known hall already has today's menu.
func NewScrapeMenusTask(scraper Scraper, gate FreshnessChecker, trigger string, force bool) *ScrapeMenusTask {
	return &ScrapeMenusTask{
		Task:    NewTask(TaskTypeScrapeMenus, trigger),
		scraper: scraper,
		gate:    gate,
		force:   force,
	}
}

func (t *ScrapeMenusTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.force && t.gate != nil {
		current, err := t.gate.IsCurrent(ctx)
		if err != nil {
			return fmt.Errorf("failed to check menu freshness: %w", err)
		}
		if current {
			slog.Info("Task skipped", "type", "ScrapeMenus", "trigger", t.Trigger, "reason", "menus current")
			return nil
		}
	}

	result, err := t.scraper.RunFullScrape(ctx)
	if err != nil {
		return fmt.Errorf("failed to run full scrape: %w", err)
	}

	if result.AlreadyRunning {
		slog.Info("Task skipped", "type", "ScrapeMenus", "trigger", t.Trigger, "reason", "already running")
		return nil
	}

	slog.Info("Task completed",
		"type", "ScrapeMenus",
		"trigger", t.Trigger,
		"run_id", result.RunID,
		"duration", t.GetDuration(),
		"sources", result.Sources,
		"succeeded", result.Succeeded,
		"failures", len(result.Failures))

	return nil
}
