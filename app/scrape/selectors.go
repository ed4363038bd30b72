package scrape

import (
	"cmp"
	"slices"
)

// HallSelectors are the structural selectors of the hall page template.
// Zero fields fall back to DefaultHallSelectors.
type HallSelectors struct {
	HoursBlock        string `yaml:"hours_block"`
	HoursEntry        string `yaml:"hours_entry"`
	HoursLabel        string `yaml:"hours_label"`
	HoursRange        string `yaml:"hours_range"`
	HoursClosed       string `yaml:"hours_closed"`
	PeriodAnchor      string `yaml:"period_anchor"`
	RecipeCard        string `yaml:"recipe_card"`
	RecipeTitle       string `yaml:"recipe_title"`
	RecipeDescription string `yaml:"recipe_description"`
	DietaryTag        string `yaml:"dietary_tag"`
	DietaryIcon       string `yaml:"dietary_icon"`

	// MealPeriods are the period names recognised as anchor prefixes, so a
	// hyphenated name such as "late-night" is not cut at its first hyphen.
	MealPeriods []string `yaml:"meal_periods"`
}

var DefaultHallSelectors = HallSelectors{
	HoursBlock:        ".hours-block",
	HoursEntry:        ".hours-entry",
	HoursLabel:        ".hours-label",
	HoursRange:        ".hours-range",
	HoursClosed:       ".hours-closed",
	PeriodAnchor:      `a[href^="#"]`,
	RecipeCard:        ".recipe-card",
	RecipeTitle:       ".recipe-title",
	RecipeDescription: ".recipe-description",
	DietaryTag:        ".dietary-tag",
	DietaryIcon:       ".dietary-icon",
	MealPeriods:       []string{"breakfast", "brunch", "lunch", "dinner", "late-night"},
}

func (s HallSelectors) WithDefaults() HallSelectors {
	d := DefaultHallSelectors
	return HallSelectors{
		HoursBlock:        cmp.Or(s.HoursBlock, d.HoursBlock),
		HoursEntry:        cmp.Or(s.HoursEntry, d.HoursEntry),
		HoursLabel:        cmp.Or(s.HoursLabel, d.HoursLabel),
		HoursRange:        cmp.Or(s.HoursRange, d.HoursRange),
		HoursClosed:       cmp.Or(s.HoursClosed, d.HoursClosed),
		PeriodAnchor:      cmp.Or(s.PeriodAnchor, d.PeriodAnchor),
		RecipeCard:        cmp.Or(s.RecipeCard, d.RecipeCard),
		RecipeTitle:       cmp.Or(s.RecipeTitle, d.RecipeTitle),
		RecipeDescription: cmp.Or(s.RecipeDescription, d.RecipeDescription),
		DietaryTag:        cmp.Or(s.DietaryTag, d.DietaryTag),
		DietaryIcon:       cmp.Or(s.DietaryIcon, d.DietaryIcon),
		MealPeriods:       knownPeriods(s.MealPeriods, d.MealPeriods),
	}
}

// SlotSpec is one food-truck service slot with its canonical times.
type SlotSpec struct {
	Label string `yaml:"label"`
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

type TruckSlots struct {
	Evening   SlotSpec `yaml:"evening"`
	LateNight SlotSpec `yaml:"late_night"`
}

var DefaultTruckSlots = TruckSlots{
	Evening:   SlotSpec{Label: "Evening", Open: "5:00 p.m.", Close: "9:00 p.m."},
	LateNight: SlotSpec{Label: "Late Night", Open: "9:00 p.m.", Close: "12:00 a.m."},
}

func (s TruckSlots) WithDefaults() TruckSlots {
	return TruckSlots{
		Evening:   s.Evening.withDefaults(DefaultTruckSlots.Evening),
		LateNight: s.LateNight.withDefaults(DefaultTruckSlots.LateNight),
	}
}

func (s SlotSpec) withDefaults(d SlotSpec) SlotSpec {
	return SlotSpec{
		Label: cmp.Or(s.Label, d.Label),
		Open:  cmp.Or(s.Open, d.Open),
		Close: cmp.Or(s.Close, d.Close),
	}
}

// knownPeriods orders names longest first so the most specific prefix wins.
func knownPeriods(names, fallback []string) []string {
	if len(names) == 0 {
		names = fallback
	}
	sorted := slices.Clone(names)
	slices.SortStableFunc(sorted, func(a, b string) int { return len(b) - len(a) })
	return sorted
}
