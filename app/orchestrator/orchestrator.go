package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/dining-comb/app/guard"
	"github.com/lysyi3m/dining-comb/app/metrics"
	"github.com/lysyi3m/dining-comb/app/scrape"
	"github.com/lysyi3m/dining-comb/app/sources"
)

type Orchestrator struct {
	sources   SourceProvider
	fetcher   scrape.PageFetcher
	engine    Reconciler
	menuLock  guard.Locker
	truckLock guard.Locker
	loc       *time.Location
	now       func() time.Time

	mu      sync.RWMutex
	lastRun *ScrapeResult
}

// NewOrchestrator wires the scrape pipeline. Nil locks default to in-process locks.
func NewOrchestrator(src SourceProvider, fetcher scrape.PageFetcher, engine Reconciler, menuLock, truckLock guard.Locker, loc *time.Location) *Orchestrator {
	if menuLock == nil {
		menuLock = guard.NewLocal()
	}
	if truckLock == nil {
		truckLock = guard.NewLocal()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Orchestrator{
		sources:   src,
		fetcher:   fetcher,
		engine:    engine,
		menuLock:  menuLock,
		truckLock: truckLock,
		loc:       loc,
		now:       time.Now,
	}
}

type hallOutcome struct {
	hall *scrape.ScrapedHall
	err  error
}

type truckOutcome struct {
	schedule *scrape.TruckSchedule
	err      error
}

// RunFullScrape fetches every enabled source concurrently and reconciles the
// halls that extracted cleanly. Truck sources are included when the truck slot
// is free. A call that finds a full scrape in flight returns AlreadyRunning.
func (o *Orchestrator) RunFullScrape(ctx context.Context) (*ScrapeResult, error) {
	result := o.newResult(KindFull)

	ran, err := guard.Do(ctx, o.menuLock, func() error {
		halls := o.sources.Enabled(sources.KindHall)
		var trucks []*sources.Source

		truckRelease, truckOK, err := o.truckLock.TryAcquire(ctx)
		if err != nil {
			slog.Error("Failed to acquire truck lock", "error", err)
		}
		if truckOK {
			defer truckRelease()
			trucks = o.sources.Enabled(sources.KindTrucks)
		} else {
			slog.Info("Truck scrape in progress, full scrape skips truck sources")
		}

		slog.Info("Full scrape started", "run_id", result.RunID, "halls", len(halls), "trucks", len(trucks))

		var hallOut []hallOutcome
		var truckOut []truckOutcome
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); hallOut = o.fetchHalls(ctx, halls) }()
		go func() { defer wg.Done(); truckOut = o.fetchTrucks(ctx, trucks) }()
		wg.Wait()

		scraped := o.collectHalls(result, halls, hallOut)
		slots, truckSucceeded := o.collectTrucks(result, trucks, truckOut)

		if len(scraped) > 0 {
			if _, err := o.engine.ApplyHallScrape(ctx, scraped); err != nil {
				return fmt.Errorf("failed to reconcile halls: %w", err)
			}
		} else {
			slog.Warn("No hall sources extracted, skipping hall reconciliation", "run_id", result.RunID)
		}

		if truckSucceeded {
			if _, err := o.engine.ApplyTruckScrape(ctx, slots); err != nil {
				return fmt.Errorf("failed to reconcile trucks: %w", err)
			}
		}
		return nil
	})

	return o.finish(result, ran, err)
}

// RunTruckScrape fetches only the truck schedule sources.
func (o *Orchestrator) RunTruckScrape(ctx context.Context) (*ScrapeResult, error) {
	result := o.newResult(KindTrucks)

	ran, err := guard.Do(ctx, o.truckLock, func() error {
		trucks := o.sources.Enabled(sources.KindTrucks)
		slog.Info("Truck scrape started", "run_id", result.RunID, "sources", len(trucks))

		slots, succeeded := o.collectTrucks(result, trucks, o.fetchTrucks(ctx, trucks))
		if !succeeded {
			slog.Warn("No truck sources extracted, skipping truck reconciliation", "run_id", result.RunID)
			return nil
		}

		if _, err := o.engine.ApplyTruckScrape(ctx, slots); err != nil {
			return fmt.Errorf("failed to reconcile trucks: %w", err)
		}
		return nil
	})

	return o.finish(result, ran, err)
}

func (o *Orchestrator) Status(ctx context.Context) Status {
	status := Status{}

	if held, err := o.menuLock.Held(ctx); err != nil {
		slog.Error("Failed to read menu lock", "error", err)
	} else {
		status.IsScraping = held
	}
	if held, err := o.truckLock.Held(ctx); err != nil {
		slog.Error("Failed to read truck lock", "error", err)
	} else {
		status.TruckScraping = held
	}

	o.mu.RLock()
	status.LastRun = o.lastRun
	o.mu.RUnlock()
	return status
}

func (o *Orchestrator) newResult(kind string) *ScrapeResult {
	return &ScrapeResult{
		RunID:     uuid.NewString(),
		Kind:      kind,
		StartedAt: o.now(),
		Failures:  []Failure{},
		Halls:     []HallResult{},
		Trucks:    []scrape.ScrapedTruckSlot{},
	}
}

func (o *Orchestrator) finish(result *ScrapeResult, ran bool, err error) (*ScrapeResult, error) {
	result.FinishedAt = o.now()

	if !ran && err == nil {
		slog.Info("Scrape already in progress, skipping", "kind", result.Kind)
		result.AlreadyRunning = true
		metrics.ObserveScrape(result.Kind, "already_running", result.StartedAt)
		return result, nil
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
		result.Error = err.Error()
		slog.Error("Scrape failed", "kind", result.Kind, "run_id", result.RunID, "error", err)
	} else {
		slog.Info("Scrape completed",
			"kind", result.Kind,
			"run_id", result.RunID,
			"duration", result.FinishedAt.Sub(result.StartedAt),
			"sources", result.Sources,
			"succeeded", result.Succeeded,
			"failures", len(result.Failures))
	}
	metrics.ObserveScrape(result.Kind, outcome, result.StartedAt)

	if ran {
		o.mu.Lock()
		o.lastRun = result
		o.mu.Unlock()
	}
	return result, err
}

func (o *Orchestrator) fetchHalls(ctx context.Context, halls []*sources.Source) []hallOutcome {
	out := make([]hallOutcome, len(halls))
	var wg sync.WaitGroup
	for i, src := range halls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = o.scrapeHall(ctx, src)
		}()
	}
	wg.Wait()
	return out
}

func (o *Orchestrator) scrapeHall(ctx context.Context, src *sources.Source) (out hallOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = hallOutcome{err: fmt.Errorf("panic during extraction: %v", r)}
		}
	}()

	data, err := o.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return hallOutcome{err: err}
	}
	hall, err := scrape.NewHallPageExtractor(src.Selectors).Run(data, src.Name, src.URL)
	if err != nil {
		return hallOutcome{err: err}
	}
	hall.Location = src.Location
	return hallOutcome{hall: hall}
}

func (o *Orchestrator) fetchTrucks(ctx context.Context, trucks []*sources.Source) []truckOutcome {
	out := make([]truckOutcome, len(trucks))
	now := o.now().In(o.loc)
	var wg sync.WaitGroup
	for i, src := range trucks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = o.scrapeTrucks(ctx, src, now)
		}()
	}
	wg.Wait()
	return out
}

func (o *Orchestrator) scrapeTrucks(ctx context.Context, src *sources.Source, now time.Time) (out truckOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = truckOutcome{err: fmt.Errorf("panic during extraction: %v", r)}
		}
	}()

	data, err := o.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return truckOutcome{err: err}
	}
	schedule, err := scrape.NewTruckScheduleExtractor(src.TruckLocations, src.Slots).Run(data, now)
	if err != nil {
		return truckOutcome{err: err}
	}
	return truckOutcome{schedule: schedule}
}

func (o *Orchestrator) collectHalls(result *ScrapeResult, halls []*sources.Source, out []hallOutcome) []scrape.ScrapedHall {
	var scraped []scrape.ScrapedHall
	for i, src := range halls {
		result.Sources++
		if err := out[i].err; err != nil {
			o.recordFailure(result, src, err)
			continue
		}

		hall := out[i].hall
		result.Succeeded++
		metrics.ObserveSource(src.Name, len(hall.Skipped), nil)
		result.Halls = append(result.Halls, HallResult{
			Name:    hall.Name,
			Periods: len(hall.Meals),
			Items:   hall.ItemCount(),
			Skipped: len(hall.Skipped),
		})
		scraped = append(scraped, *hall)
	}
	return scraped
}

func (o *Orchestrator) collectTrucks(result *ScrapeResult, trucks []*sources.Source, out []truckOutcome) ([]scrape.ScrapedTruckSlot, bool) {
	var schedules [][]scrape.ScrapedTruckSlot
	for i, src := range trucks {
		result.Sources++
		if err := out[i].err; err != nil {
			o.recordFailure(result, src, err)
			continue
		}
		result.Succeeded++
		metrics.ObserveSource(src.Name, len(out[i].schedule.Skipped), nil)
		schedules = append(schedules, out[i].schedule.Slots)
	}

	if len(schedules) == 0 {
		return nil, false
	}
	result.Trucks = scrape.MergeSlots(schedules...)
	return result.Trucks, true
}

func (o *Orchestrator) recordFailure(result *ScrapeResult, src *sources.Source, err error) {
	slog.Error("Source skipped", "source", src.Name, "url", src.URL, "error", err)
	metrics.ObserveSource(src.Name, 0, err)
	result.Failures = append(result.Failures, Failure{Source: src.Name, URL: src.URL, Error: err.Error()})
}
