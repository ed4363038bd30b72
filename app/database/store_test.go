package database

import (
	"context"
	"testing"
	"time"

	"github.com/lysyi3m/dining-comb/app/timewindow"
)

func newSQLiteTestStore(t *testing.T) Repository {
	t.Helper()

	db, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func forEachStore(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteTestStore(t)) })
}

func TestHallKey(t *testing.T) {
	tests := map[string]string{
		"De Neve":        "de neve",
		"  De   Neve  ":  "de neve",
		"DE NEVE":        "de neve",
		"Bruin Plate": "bruin plate",
	}

	for input, want := range tests {
		if got := HallKey(input); got != want {
			t.Errorf("HallKey(%q): expected %q, got %q", input, want, got)
		}
	}
}

func TestUpsertDiningHall(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		lunch := timewindow.NewOpenPeriod("Lunch", "11:00 a.m.", "2:00 p.m.")

		_, err := repo.UpsertDiningHall(ctx, "De Neve", DiningHallPatch{Name: "De Neve", Location: "Hill", Hours: []timewindow.Period{lunch}})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		hall, err := repo.UpsertDiningHall(ctx, "de neve ", DiningHallPatch{Name: "de neve", Location: "Hill", Hours: nil})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if hall.Name != "De Neve" {
			t.Errorf("Expected display name 'De Neve' to be kept, got '%s'", hall.Name)
		}
		if len(hall.Hours) != 0 {
			t.Errorf("Expected hours to be fully replaced, got %d periods", len(hall.Hours))
		}

		halls, err := repo.FindAllDiningHalls(ctx)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(halls) != 1 {
			t.Fatalf("Expected 1 dining hall, got %d", len(halls))
		}
		if halls[0].Key != "de neve" {
			t.Errorf("Expected key 'de neve', got '%s'", halls[0].Key)
		}
	})
}

func TestUpsertMeal_SetOnInsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		first, err := repo.UpsertMeal(ctx, "Fruit Cup",
			MealSet{Description: "melon", Category: "SALADS", HereToday: true},
			MealInsert{DietaryTags: []string{"vegan"}, DiningHall: "De Neve"})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		second, err := repo.UpsertMeal(ctx, "Fruit Cup",
			MealSet{Description: "berries", Category: "FRESH", HereToday: true},
			MealInsert{DietaryTags: []string{"gluten-free"}, FavoritesCount: 99, DiningHall: "Epicuria"})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("Expected stable meal ID, got %s and %s", first.ID, second.ID)
		}
		if second.Description != "berries" || second.Category != "FRESH" {
			t.Errorf("Expected description and category to be overwritten, got %q / %q", second.Description, second.Category)
		}
		if second.DiningHall != "De Neve" {
			t.Errorf("Expected dining hall from first insert, got %q", second.DiningHall)
		}
		if second.FavoritesCount != 0 {
			t.Errorf("Expected favorites count from first insert, got %d", second.FavoritesCount)
		}
		if len(second.DietaryTags) != 1 || second.DietaryTags[0] != "vegan" {
			t.Errorf("Expected dietary tags from first insert, got %v", second.DietaryTags)
		}

		if err := repo.ResetAllMeals(ctx, MealReset{HereToday: false}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		meals, err := repo.FindMealsByIDs(ctx, []string{first.ID})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(meals) != 1 || meals[0].HereToday {
			t.Errorf("Expected one meal reset to hereToday=false, got %+v", meals)
		}
	})
}

func TestUpsertMenu_ReplacesAndFindsByDate(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		today := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		yesterday := today.AddDate(0, 0, -1)

		_, err := repo.UpsertMenu(ctx, "de neve", Menu{HallName: "De Neve", Date: yesterday})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		_, err = repo.UpsertMenu(ctx, "de neve", Menu{
			HallName: "De Neve",
			Date:     today,
			MealPeriods: []MenuPeriod{{
				Name:     "breakfast",
				Stations: []MenuStation{{Name: "SALADS", Meals: []MealRef{{ID: "m1", Name: "Fruit Cup"}}}},
			}},
		})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		_, err = repo.UpsertMenu(ctx, "epicuria", Menu{HallName: "Epicuria", Date: yesterday})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		menus, err := repo.FindMenusByDateRange(ctx, today, today.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(menus) != 1 {
			t.Fatalf("Expected 1 menu for today, got %d", len(menus))
		}
		if menus[0].HallKey != "de neve" {
			t.Errorf("Expected menu for 'de neve', got '%s'", menus[0].HallKey)
		}
		if len(menus[0].MealPeriods) != 1 || menus[0].MealPeriods[0].Stations[0].Meals[0].ID != "m1" {
			t.Errorf("Expected replaced meal periods, got %+v", menus[0].MealPeriods)
		}

		missing, err := repo.FindMenu(ctx, "sproul")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if missing != nil {
			t.Errorf("Expected nil menu for unknown hall, got %+v", missing)
		}
	})
}

func TestFoodTrucks_ResetAndUpsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		slot := timewindow.NewOpenPeriod("Evening", "5:00 p.m.", "9:00 p.m.")

		_, err := repo.UpsertFoodTruck(ctx, "Kogi",
			FoodTruckSet{DailyLocation: "Rieber", Hours: []timewindow.Period{slot}, HereToday: true},
			FoodTruckInsert{FavoriteCount: 0})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if err := repo.ResetAllFoodTrucks(ctx, FoodTruckReset{}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		here, err := repo.FindFoodTrucks(ctx, true)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(here) != 0 {
			t.Errorf("Expected no trucks here after reset, got %d", len(here))
		}

		all, err := repo.FindFoodTrucks(ctx, false)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("Expected truck to survive reset, got %d trucks", len(all))
		}
		if all[0].DailyLocation != "" || len(all[0].Hours) != 0 {
			t.Errorf("Expected location and hours cleared, got %q / %v", all[0].DailyLocation, all[0].Hours)
		}
	})
}
