package database

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/dining-comb/app/timewindow"
)

type DiningHallPatch struct {
	Name     string
	Location string
	Hours    []timewindow.Period
}

// MealSet is written on every upsert.
type MealSet struct {
	Description string
	Category    string
	HereToday   bool
}

// MealInsert is written only when the meal does not exist yet.
type MealInsert struct {
	DietaryTags    []string
	FavoritesCount int
	DiningHall     string
}

type MealReset struct {
	HereToday bool
}

type FoodTruckSet struct {
	DailyLocation string
	Hours         []timewindow.Period
	HereToday     bool
}

type FoodTruckInsert struct {
	FavoriteCount int
}

type FoodTruckReset struct {
	DailyLocation string
	Hours         []timewindow.Period
	HereToday     bool
}

// Repository is the document store the scrape pipeline reconciles against.
// Every write is an upsert keyed by a natural name.
type Repository interface {
	FindMenusByDateRange(ctx context.Context, start, end time.Time) ([]Menu, error)
	FindMenu(ctx context.Context, hallKey string) (*Menu, error)
	FindAllDiningHalls(ctx context.Context) ([]DiningHall, error)
	FindMealsByIDs(ctx context.Context, ids []string) ([]Meal, error)
	FindFoodTrucks(ctx context.Context, hereTodayOnly bool) ([]FoodTruck, error)

	UpsertDiningHall(ctx context.Context, name string, patch DiningHallPatch) (*DiningHall, error)
	UpsertMeal(ctx context.Context, name string, set MealSet, insert MealInsert) (*Meal, error)
	ResetAllMeals(ctx context.Context, patch MealReset) error
	UpsertMenu(ctx context.Context, hallKey string, menu Menu) (*Menu, error)
	ResetAllFoodTrucks(ctx context.Context, patch FoodTruckReset) error
	UpsertFoodTruck(ctx context.Context, name string, set FoodTruckSet, insert FoodTruckInsert) (*FoodTruck, error)

	Close() error
}

// HallKey is the natural identity of a dining hall.
func HallKey(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(norm.NFKC.String(name)), " "))
}

func nonNilPeriods(p []timewindow.Period) []timewindow.Period {
	if p == nil {
		return []timewindow.Period{}
	}
	return p
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
