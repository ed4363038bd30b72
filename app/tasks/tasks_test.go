package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/dining-comb/app/orchestrator"
)

type fakeScraper struct {
	mu        sync.Mutex
	full      int
	trucks    int
	fullErr   error
	running   bool
	fullCalls chan struct{}
}

func (f *fakeScraper) RunFullScrape(ctx context.Context) (*orchestrator.ScrapeResult, error) {
	f.mu.Lock()
	f.full++
	f.mu.Unlock()
	if f.fullCalls != nil {
		f.fullCalls <- struct{}{}
	}
	if f.fullErr != nil {
		return &orchestrator.ScrapeResult{Kind: orchestrator.KindFull}, f.fullErr
	}
	return &orchestrator.ScrapeResult{Kind: orchestrator.KindFull, AlreadyRunning: f.running}, nil
}

func (f *fakeScraper) RunTruckScrape(ctx context.Context) (*orchestrator.ScrapeResult, error) {
	f.mu.Lock()
	f.trucks++
	f.mu.Unlock()
	return &orchestrator.ScrapeResult{Kind: orchestrator.KindTrucks}, nil
}

func (f *fakeScraper) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.full, f.trucks
}

type fakeGate struct {
	current bool
	err     error
}

func (g fakeGate) IsCurrent(ctx context.Context) (bool, error) {
	return g.current, g.err
}

type fakeLoader struct {
	runs int
	err  error
}

func (l *fakeLoader) Run() error {
	l.runs++
	return l.err
}

func (l *fakeLoader) Count() int {
	return 2
}

func TestScrapeMenusTask_Gate(t *testing.T) {
	tests := []struct {
		name     string
		gate     fakeGate
		force    bool
		wantRuns int
		wantErr  bool
	}{
		{"stale menus scrape", fakeGate{current: false}, false, 1, false},
		{"current menus skip", fakeGate{current: true}, false, 0, false},
		{"force bypasses gate", fakeGate{current: true}, true, 1, false},
		{"gate error", fakeGate{err: errors.New("db down")}, false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scraper := &fakeScraper{}
			task := NewScrapeMenusTask(scraper, tt.gate, "test", tt.force)

			err := task.Execute(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got: %v", tt.wantErr, err)
			}
			if full, _ := scraper.counts(); full != tt.wantRuns {
				t.Errorf("Expected %d full scrapes, got %d", tt.wantRuns, full)
			}
		})
	}
}

func TestScrapeMenusTask_AlreadyRunningIsNotAnError(t *testing.T) {
	task := NewScrapeMenusTask(&fakeScraper{running: true}, nil, "test", false)
	if err := task.Execute(context.Background()); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestScrapeTrucksTask(t *testing.T) {
	scraper := &fakeScraper{}
	if err := NewScrapeTrucksTask(scraper, "api").Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, trucks := scraper.counts(); trucks != 1 {
		t.Errorf("Expected 1 truck scrape, got %d", trucks)
	}
}

func TestSyncSourcesTask(t *testing.T) {
	loader := &fakeLoader{}
	if err := NewSyncSourcesTask(loader, "cron").Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	loader.err = errors.New("bad yaml")
	if err := NewSyncSourcesTask(loader, "cron").Execute(context.Background()); err == nil {
		t.Error("Expected reload error")
	}
	if loader.runs != 2 {
		t.Errorf("Expected 2 reloads, got %d", loader.runs)
	}
}

func TestTask_Retry(t *testing.T) {
	task := NewTask(TaskTypeScrapeMenus, "test")
	if task.ID == "" {
		t.Error("Expected task ID to be set")
	}
	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}

func TestScheduler_StartupTasks(t *testing.T) {
	scraper := &fakeScraper{fullCalls: make(chan struct{}, 1)}
	s := newScheduler(scraper, fakeGate{}, &fakeLoader{}, Options{WorkerCount: 1})
	if err := s.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	select {
	case <-scraper.fullCalls:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected startup menu scrape")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, trucks := scraper.counts(); trucks == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	if _, trucks := scraper.counts(); trucks != 1 {
		t.Errorf("Expected startup truck scrape, got %d", trucks)
	}
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	scraper := &fakeScraper{fullErr: errors.New("write failed"), fullCalls: make(chan struct{}, 10)}
	s := newScheduler(scraper, nil, &fakeLoader{}, Options{WorkerCount: 1})
	s.runStartup = false
	s.retryBase = time.Millisecond
	if err := s.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer s.Stop()

	if err := s.EnqueueTask(NewScrapeMenusTask(scraper, nil, "test", true)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for i := 0; i < DefaultMaxRetries+1; i++ {
		select {
		case <-scraper.fullCalls:
		case <-time.After(2 * time.Second):
			t.Fatalf("Expected attempt %d", i+1)
		}
	}
}

func TestScheduler_InvalidCronSpec(t *testing.T) {
	s := newScheduler(&fakeScraper{}, nil, &fakeLoader{}, Options{MenuCron: "every now and then"})
	defer s.cancel()

	if err := s.Start(); err == nil {
		t.Error("Expected error for invalid cron spec")
	}
}
