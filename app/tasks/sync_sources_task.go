package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type SyncSourcesTask struct {
	Task
	loader SourceLoader
}

func NewSyncSourcesTask(loader SourceLoader, trigger string) *SyncSourcesTask {
	return &SyncSourcesTask{
		Task:   NewTask(TaskTypeSyncSources, trigger),
		loader: loader,
	}
}

func (t *SyncSourcesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.loader.Run(); err != nil {
		slog.Error("Task failed", "type", "SyncSources", "error", err)
		return fmt.Errorf("failed to reload source configurations: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSources",
		"trigger", t.Trigger,
		"sources", t.loader.Count(),
		"duration", t.GetDuration())

	return nil
}
