package orchestrator

import (
	"context"
	"time"

	"github.com/lysyi3m/dining-comb/app/reconcile"
	"github.com/lysyi3m/dining-comb/app/scrape"
	"github.com/lysyi3m/dining-comb/app/sources"
)

const (
	KindFull   = "full"
	KindTrucks = "trucks"
)

type SourceProvider interface {
	Enabled(kind sources.Kind) []*sources.Source
}

type Reconciler interface {
	ApplyHallScrape(ctx context.Context, halls []scrape.ScrapedHall) (*reconcile.HallSummary, error)
	ApplyTruckScrape(ctx context.Context, slots []scrape.ScrapedTruckSlot) (*reconcile.TruckSummary, error)
}

type Failure struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

type HallResult struct {
	Name    string `json:"name"`
	Periods int    `json:"periods"`
	Items   int    `json:"items"`
	Skipped int    `json:"skipped"`
}

// ScrapeResult summarises one cycle. AlreadyRunning marks a call that found
// the slot taken and did nothing.
type ScrapeResult struct {
	RunID          string                    `json:"runId,omitempty"`
	Kind           string                    `json:"kind"`
	StartedAt      time.Time                 `json:"startedAt"`
	FinishedAt     time.Time                 `json:"finishedAt"`
	AlreadyRunning bool                      `json:"alreadyRunning"`
	Sources        int                       `json:"sources"`
	Succeeded      int                       `json:"succeeded"`
	Failures       []Failure                 `json:"failures"`
	Halls          []HallResult              `json:"halls"`
	Trucks         []scrape.ScrapedTruckSlot `json:"trucks"`
	Error          string                    `json:"error,omitempty"`
}

type Status struct {
	IsScraping    bool          `json:"isScraping"`
	TruckScraping bool          `json:"truckScraping"`
	LastRun       *ScrapeResult `json:"lastRun"`
}
