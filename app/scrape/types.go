package scrape

import (
	"errors"

	"github.com/lysyi3m/dining-comb/app/timewindow"
)

// ErrUnexpectedMarkup marks a page that lacks every structural element of its template.
var ErrUnexpectedMarkup = errors.New("unexpected page markup")

type ScrapedMenuItem struct {
	Name        string   `json:"name"`
	Station     string   `json:"station"`
	Ingredients string   `json:"ingredients"`
	DietaryTags []string `json:"dietaryTags,omitempty"`
}

type ScrapedStation struct {
	Name      string            `json:"name"`
	MenuItems []ScrapedMenuItem `json:"menuItems"`
}

type ScrapedMealPeriod struct {
	Name     string           `json:"name"`
	Stations []ScrapedStation `json:"stations"`
}

// Station returns the named station or nil.
func (p *ScrapedMealPeriod) Station(name string) *ScrapedStation {
	if p == nil {
		return nil
	}
	for i := range p.Stations {
		if p.Stations[i].Name == name {
			return &p.Stations[i]
		}
	}
	return nil
}

// Skip records an element the extractor could not use and why.
type Skip struct {
	Where  string `json:"where"`
	Reason string `json:"reason"`
}

type ScrapedHall struct {
	Name     string              `json:"name"`
	URL      string              `json:"url"`
	Location string              `json:"location,omitempty"`
	Hours    []timewindow.Period `json:"hours"`
	Meals    []ScrapedMealPeriod `json:"meals"` // document order
	Skipped  []Skip              `json:"skipped,omitempty"`
}

// Period returns the named meal period or nil.
func (h *ScrapedHall) Period(name string) *ScrapedMealPeriod {
	for i := range h.Meals {
		if h.Meals[i].Name == name {
			return &h.Meals[i]
		}
	}
	return nil
}

// ItemCount is the number of menu items across every period and station.
func (h *ScrapedHall) ItemCount() int {
	count := 0
	for _, p := range h.Meals {
		for _, s := range p.Stations {
			count += len(s.MenuItems)
		}
	}
	return count
}

type ScrapedTruckSlot struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	TimeSlotLabel string `json:"timeSlotLabel"`
	Open          string `json:"open"`
	Close         string `json:"close"`
}

type TruckSchedule struct {
	Slots   []ScrapedTruckSlot `json:"slots"`
	Skipped []Skip             `json:"skipped,omitempty"`
}
