package api

import (
	"context"
	"time"

	"github.com/lysyi3m/dining-comb/app/database"
	"github.com/lysyi3m/dining-comb/app/orchestrator"
	"github.com/lysyi3m/dining-comb/app/timewindow"
)

type ScrapeService interface {
	RunFullScrape(ctx context.Context) (*orchestrator.ScrapeResult, error)
	RunTruckScrape(ctx context.Context) (*orchestrator.ScrapeResult, error)
	Status(ctx context.Context) orchestrator.Status
}

type FreshnessChecker interface {
	IsCurrent(ctx context.Context) (bool, error)
}

type SourceCatalog interface {
	Count() int
}

type hallResponse struct {
	database.DiningHall
	timewindow.Status
}

type truckResponse struct {
	database.FoodTruck
	timewindow.Status
}

type resolvedStation struct {
	Name  string          `json:"name"`
	Meals []database.Meal `json:"meals"`
}

type resolvedPeriod struct {
	Name     string            `json:"name"`
	Stations []resolvedStation `json:"stations"`
}

type menuResponse struct {
	HallKey     string           `json:"hallKey"`
	HallName    string           `json:"hallName"`
	Date        time.Time        `json:"date"`
	MealPeriods []resolvedPeriod `json:"mealPeriods"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
