package scrape

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lysyi3m/dining-comb/app/timewindow"
)

func withRaw(p timewindow.Period, raw string) timewindow.Period {
	p.RawTimeText = raw
	return p
}

func TestHallPageExtractor_SingleCard(t *testing.T) {
	page := `<html><body>
<div class="hours-block">
  <div class="hours-entry"><span class="hours-label">Breakfast</span><span class="hours-range">7:00 a.m. – 10:00 a.m.</span></div>
</div>
<nav><a href="#breakfast-SALADS">Salads</a></nav>
<section id="breakfast-SALADS">
  <div class="recipe-card"><a class="recipe-title">Fruit Cup</a></div>
</section>
</body></html>`

	hall, err := NewHallPageExtractor(HallSelectors{}).Run([]byte(page), "De Neve", "https://dining.example/de-neve")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	breakfast := hall.Period("breakfast")
	if breakfast == nil {
		t.Fatalf("Expected breakfast period, got %+v", hall.Meals)
	}
	salads := breakfast.Station("SALADS")
	if salads == nil {
		t.Fatalf("Expected SALADS station, got %+v", breakfast.Stations)
	}

	want := []ScrapedMenuItem{{Name: "Fruit Cup", Station: "SALADS", Ingredients: ""}}
	if diff := cmp.Diff(want, salads.MenuItems); diff != "" {
		t.Errorf("Menu items mismatch (-want +got):\n%s", diff)
	}

	wantHours := []timewindow.Period{
		withRaw(timewindow.NewOpenPeriod("Breakfast", "7:00 a.m.", "10:00 a.m."), "7:00 a.m. – 10:00 a.m."),
	}
	if diff := cmp.Diff(wantHours, hall.Hours); diff != "" {
		t.Errorf("Hours mismatch (-want +got):\n%s", diff)
	}
	if len(hall.Skipped) != 0 {
		t.Errorf("Expected no skipped elements, got %+v", hall.Skipped)
	}
}

func TestHallPageExtractor_FullPage(t *testing.T) {
	page := `<html><body>
<div class="hours-block">
  <div class="hours-entry"><span class="hours-label">Breakfast</span><span class="hours-range">7:00&nbsp;a.m.-10:00&nbsp;a.m.</span></div>
  <div class="hours-entry"><span class="hours-label">Lunch</span><span class="hours-closed">Closed today</span></div>
  <div class="hours-entry"><span class="hours-label">Late Night</span><span class="hours-range">9:00 p.m. — 2:00 a.m.</span></div>
  <div class="hours-entry"><span class="hours-label">Brunch</span><span class="hours-range">See website</span></div>
  <div class="hours-entry"><span class="hours-range">1:00 p.m. - 2:00 p.m.</span></div>
</div>
<nav>
  <a href="#dinner-GRILL">Grill</a>
  <a href="#breakfast-SALADS">Salads</a>
  <a href="#dinner-GRILL">Grill again</a>
  <a href="#dinner-PIZZA-OVEN">Pizza</a>
  <a href="#dinner-MISSING">Missing</a>
  <a href="#top">Top</a>
  <a href="/other">Other</a>
</nav>
<section id="dinner-GRILL">
  <div class="recipe-card">
    <span class="recipe-title">  Cheese   Burger </span>
    <p class="recipe-description">Beef patty, cheddar</p>
    <span class="dietary-tag">Halal</span>
    <img class="dietary-icon" title="Contains Dairy">
    <img class="dietary-icon" title="halal">
  </div>
  <div class="recipe-card"><span class="recipe-title"></span></div>
</section>
<section id="breakfast-SALADS"></section>
<section id="dinner-PIZZA-OVEN">
  <div class="recipe-card"><span class="recipe-title">Margherita</span></div>
</section>
</body></html>`

	hall, err := NewHallPageExtractor(HallSelectors{}).Run([]byte(page), "Epicuria", "u")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	wantHours := []timewindow.Period{
		withRaw(timewindow.NewOpenPeriod("Breakfast", "7:00 a.m.", "10:00 a.m."), "7:00 a.m.-10:00 a.m."),
		timewindow.NewClosedPeriod("Lunch", "Closed today"),
		withRaw(timewindow.NewOpenPeriod("Late Night", "9:00 p.m.", "2:00 a.m."), "9:00 p.m. — 2:00 a.m."),
		{Label: "Brunch", RawTimeText: "See website", IsOpen: true},
	}
	if diff := cmp.Diff(wantHours, hall.Hours); diff != "" {
		t.Errorf("Hours mismatch (-want +got):\n%s", diff)
	}

	wantMeals := []ScrapedMealPeriod{
		{
			Name: "dinner",
			Stations: []ScrapedStation{
				{Name: "GRILL", MenuItems: []ScrapedMenuItem{{
					Name:        "Cheese Burger",
					Station:     "GRILL",
					Ingredients: "Beef patty, cheddar",
					DietaryTags: []string{"Halal", "Contains Dairy"},
				}}},
				{Name: "PIZZA-OVEN", MenuItems: []ScrapedMenuItem{{Name: "Margherita", Station: "PIZZA-OVEN"}}},
			},
		},
		{
			Name:     "breakfast",
			Stations: []ScrapedStation{{Name: "SALADS", MenuItems: []ScrapedMenuItem{}}},
		},
	}
	if diff := cmp.Diff(wantMeals, hall.Meals); diff != "" {
		t.Errorf("Meals mismatch (-want +got):\n%s", diff)
	}

	wantSkipped := []Skip{
		{Where: "hours entry 4", Reason: "missing period label"},
		{Where: "#dinner-GRILL card 1", Reason: "empty title"},
		{Where: "#dinner-MISSING", Reason: "no section with matching id"},
	}
	if diff := cmp.Diff(wantSkipped, hall.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}

	if hall.ItemCount() != 2 {
		t.Errorf("Expected 2 items, got %d", hall.ItemCount())
	}
}

func TestHallPageExtractor_CustomSelectors(t *testing.T) {
	page := `<div class="times"><p class="slot"><b>Dinner</b><i>5:00 p.m. - 9:00 p.m.</i></p></div>
<a href="#dinner-Desserts">Desserts</a>
<div id="dinner-Desserts"><article><h4>Brownie</h4></article></div>`

	sel := HallSelectors{
		HoursBlock:  ".times",
		HoursEntry:  ".slot",
		HoursLabel:  "b",
		HoursRange:  "i",
		RecipeCard:  "article",
		RecipeTitle: "h4",
	}
	hall, err := NewHallPageExtractor(sel).Run([]byte(page), "Feast", "u")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(hall.Hours) != 1 || *hall.Hours[0].Open != "5:00 p.m." || *hall.Hours[0].Close != "9:00 p.m." {
		t.Errorf("Expected dinner hours 5:00 p.m. to 9:00 p.m., got %+v", hall.Hours)
	}
	desserts := hall.Period("dinner").Station("Desserts")
	if desserts == nil || len(desserts.MenuItems) != 1 || desserts.MenuItems[0].Name != "Brownie" {
		t.Errorf("Expected one Brownie in Desserts, got %+v", hall.Meals)
	}
}

func TestHallPageExtractor_HyphenatedPeriods(t *testing.T) {
	page := `<div class="hours-block"><div class="hours-entry"><span class="hours-label">Late Night</span><span class="hours-range">9:00 p.m. - 12:00 a.m.</span></div></div>
<a href="#late-night-GRILL">Grill</a>
<a href="#happy-hour-BAR">Bar</a>
<a href="#Dinner-HOT-LINE">Hot Line</a>
<div id="late-night-GRILL"><div class="recipe-card"><span class="recipe-title">Burger</span></div></div>
<div id="happy-hour-BAR"><div class="recipe-card"><span class="recipe-title">Lemonade</span></div></div>
<div id="Dinner-HOT-LINE"><div class="recipe-card"><span class="recipe-title">Pho</span></div></div>`

	hall, err := NewHallPageExtractor(HallSelectors{}).Run([]byte(page), "Rendezvous", "u")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	tests := []struct {
		period  string
		station string
		item    string
	}{
		{"late-night", "GRILL", "Burger"},
		{"happy", "hour-BAR", "Lemonade"},
		{"Dinner", "HOT-LINE", "Pho"},
	}
	for _, tt := range tests {
		station := hall.Period(tt.period).Station(tt.station)
		if station == nil || len(station.MenuItems) != 1 || station.MenuItems[0].Name != tt.item {
			t.Errorf("Expected %s in %s/%s, got %+v", tt.item, tt.period, tt.station, hall.Meals)
		}
	}

	custom := HallSelectors{MealPeriods: []string{"happy-hour"}}
	hall, err = NewHallPageExtractor(custom).Run([]byte(page), "Rendezvous", "u")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if hall.Period("happy-hour").Station("BAR") == nil {
		t.Errorf("Expected configured period happy-hour with station BAR, got %+v", hall.Meals)
	}
	if hall.Period("late").Station("night-GRILL") == nil {
		t.Errorf("Expected unlisted late-night to split at first hyphen, got %+v", hall.Meals)
	}
}

func TestHallPageExtractor_UnexpectedMarkup(t *testing.T) {
	_, err := NewHallPageExtractor(HallSelectors{}).Run([]byte(`<html><body><p>Down for maintenance</p></body></html>`), "Sproul", "u")
	if !errors.Is(err, ErrUnexpectedMarkup) {
		t.Errorf("Expected ErrUnexpectedMarkup, got: %v", err)
	}

	_, err = NewHallPageExtractor(HallSelectors{}).Run(nil, "Sproul", "u")
	if err == nil {
		t.Error("Expected error for empty page")
	}
}

func TestHallPageExtractor_HoursOnly(t *testing.T) {
	page := `<div class="hours-block"><div class="hours-entry"><span class="hours-label">Dinner</span><span class="hours-closed">Closed</span></div></div>`

	hall, err := NewHallPageExtractor(HallSelectors{}).Run([]byte(page), "Covel", "u")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(hall.Meals) != 0 {
		t.Errorf("Expected no meal periods, got %+v", hall.Meals)
	}
	if len(hall.Hours) != 1 || hall.Hours[0].IsOpen || hall.Hours[0].Open != nil {
		t.Errorf("Expected one closed period, got %+v", hall.Hours)
	}
}
