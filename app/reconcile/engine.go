package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/dining-comb/app/database"
	"github.com/lysyi3m/dining-comb/app/metrics"
	"github.com/lysyi3m/dining-comb/app/scrape"
	"github.com/lysyi3m/dining-comb/app/timewindow"
)

const defaultConcurrency = 16

// Engine merges scrape output into the repository. Each pass resets the
// collection first and only then issues its upserts. Callers must not run two
// passes of the same kind at once.
type Engine struct {
	repo        database.Repository
	concurrency int
	loc         *time.Location
	now         func() time.Time
}

func NewEngine(repo database.Repository, concurrency int, loc *time.Location) *Engine {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{repo: repo, concurrency: concurrency, loc: loc, now: time.Now}
}

type HallSummary struct {
	Halls int `json:"halls"`
	Meals int `json:"meals"`
	Menus int `json:"menus"`
}

type TruckSummary struct {
	Trucks int `json:"trucks"`
}

type mealUpsert struct {
	item scrape.ScrapedMenuItem
	hall string
}

func (e *Engine) ApplyHallScrape(ctx context.Context, halls []scrape.ScrapedHall) (*HallSummary, error) {
	if err := e.repo.ResetAllMeals(ctx, database.MealReset{HereToday: false}); err != nil {
		metrics.ObserveWrite("meal_reset", err)
		return nil, fmt.Errorf("failed to reset meals: %w", err)
	}

	meals := uniqueMeals(halls)
	ids := make(map[string]string, len(meals))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, hall := range halls {
		g.Go(func() error {
			_, err := e.repo.UpsertDiningHall(gctx, hall.Name, database.DiningHallPatch{
				Name:     hall.Name,
				Location: hall.Location,
				Hours:    hall.Hours,
			})
			metrics.ObserveWrite("dining_hall", err)
			if err != nil {
				return fmt.Errorf("failed to upsert dining hall %s: %w", hall.Name, err)
			}
			return nil
		})
	}

	for _, m := range meals {
		g.Go(func() error {
			meal, err := e.repo.UpsertMeal(gctx, m.item.Name,
				database.MealSet{
					Description: m.item.Ingredients,
					Category:    m.item.Station,
					HereToday:   true,
				},
				database.MealInsert{
					DietaryTags:    m.item.DietaryTags,
					FavoritesCount: 0,
					DiningHall:     m.hall,
				})
			metrics.ObserveWrite("meal", err)
			if err != nil {
				return fmt.Errorf("failed to upsert meal %s: %w", m.item.Name, err)
			}

			mu.Lock()
			ids[meal.Name] = meal.ID
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	today := timewindow.StartOfDay(e.now().In(e.loc))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, hall := range halls {
		menu := buildMenu(hall, ids, today)
		g.Go(func() error {
			_, err := e.repo.UpsertMenu(gctx, database.HallKey(hall.Name), menu)
			metrics.ObserveWrite("menu", err)
			if err != nil {
				return fmt.Errorf("failed to upsert menu for %s: %w", hall.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &HallSummary{Halls: len(halls), Meals: len(meals), Menus: len(halls)}
	slog.Info("Hall scrape reconciled", "halls", summary.Halls, "meals", summary.Meals, "menus", summary.Menus)
	return summary, nil
}

// uniqueMeals flattens every scraped item keyed by exact name. The first
// occurrence wins, so a name served at two halls becomes one meal owned by
// the first hall.
func uniqueMeals(halls []scrape.ScrapedHall) []mealUpsert {
	var meals []mealUpsert
	seen := make(map[string]bool)
	for _, hall := range halls {
		for _, period := range hall.Meals {
			for _, station := range period.Stations {
				for _, item := range station.MenuItems {
					if seen[item.Name] {
						continue
					}
					seen[item.Name] = true
					meals = append(meals, mealUpsert{item: item, hall: hall.Name})
				}
			}
		}
	}
	return meals
}

func buildMenu(hall scrape.ScrapedHall, ids map[string]string, date time.Time) database.Menu {
	periods := make([]database.MenuPeriod, 0, len(hall.Meals))
	for _, period := range hall.Meals {
		stations := make([]database.MenuStation, 0, len(period.Stations))
		for _, station := range period.Stations {
			refs := make([]database.MealRef, 0, len(station.MenuItems))
			for _, item := range station.MenuItems {
				refs = append(refs, database.MealRef{ID: ids[item.Name], Name: item.Name})
			}
			stations = append(stations, database.MenuStation{Name: station.Name, Meals: refs})
		}
		periods = append(periods, database.MenuPeriod{Name: period.Name, Stations: stations})
	}

	return database.Menu{
		HallName:    hall.Name,
		Date:        date,
		MealPeriods: periods,
	}
}

func (e *Engine) ApplyTruckScrape(ctx context.Context, slots []scrape.ScrapedTruckSlot) (*TruckSummary, error) {
	err := e.repo.ResetAllFoodTrucks(ctx, database.FoodTruckReset{
		DailyLocation: "",
		Hours:         []timewindow.Period{},
		HereToday:     false,
	})
	if err != nil {
		metrics.ObserveWrite("food_truck_reset", err)
		return nil, fmt.Errorf("failed to reset food trucks: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, slot := range slots {
		g.Go(func() error {
			_, err := e.repo.UpsertFoodTruck(gctx, slot.Name,
				database.FoodTruckSet{
					DailyLocation: slot.Location,
					Hours:         []timewindow.Period{timewindow.NewOpenPeriod(slot.TimeSlotLabel, slot.Open, slot.Close)},
					HereToday:     true,
				},
				database.FoodTruckInsert{FavoriteCount: 0})
			metrics.ObserveWrite("food_truck", err)
			if err != nil {
				return fmt.Errorf("failed to upsert food truck %s: %w", slot.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("Truck scrape reconciled", "trucks", len(slots))
	return &TruckSummary{Trucks: len(slots)}, nil
}
