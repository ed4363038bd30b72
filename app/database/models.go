package database

import (
	"time"

	"github.com/lysyi3m/dining-comb/app/timewindow"
)

type DiningHall struct {
	Key        string              `json:"key"`  // case-folded, trimmed name
	Name       string              `json:"name"` // display name as first configured
	Location   string              `json:"location"`
	Hours      []timewindow.Period `json:"hours"`
	CommentIDs []string            `json:"commentIds"` // owned by the social subsystem
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

type Meal struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"` // station name
	DietaryTags    []string  `json:"dietaryTags"`
	HereToday      bool      `json:"hereToday"`
	FavoritesCount int       `json:"favoritesCount"`
	DiningHall     string    `json:"diningHall"` // fixed at first insert
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// MealRef points at a Meal by ID; menus never embed meal copies.
type MealRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MenuStation struct {
	Name  string    `json:"name"`
	Meals []MealRef `json:"meals"`
}

type MenuPeriod struct {
	Name     string        `json:"name"`
	Stations []MenuStation `json:"stations"`
}

type Menu struct {
	HallKey     string       `json:"hallKey"`
	HallName    string       `json:"hallName"`
	Date        time.Time    `json:"date"`
	MealPeriods []MenuPeriod `json:"mealPeriods"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type FoodTruck struct {
	Name          string              `json:"name"`
	DailyLocation string              `json:"dailyLocation"`
	Hours         []timewindow.Period `json:"hours"`
	HereToday     bool                `json:"hereToday"`
	FavoriteCount int                 `json:"favoriteCount"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}
