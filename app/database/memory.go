package database

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/dining-comb/app/timewindow"
)

var _ Repository = (*MemoryStore)(nil)

// MemoryStore keeps every collection in process memory. It honours the same
// upsert semantics as the SQLite store.
type MemoryStore struct {
	mu     sync.RWMutex
	halls  map[string]DiningHall
	meals  map[string]Meal // keyed by name
	menus  map[string]Menu // keyed by hall key
	trucks map[string]FoodTruck
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		halls:  make(map[string]DiningHall),
		meals:  make(map[string]Meal),
		menus:  make(map[string]Menu),
		trucks: make(map[string]FoodTruck),
		now:    time.Now,
	}
}

func (s *MemoryStore) FindMenusByDateRange(ctx context.Context, start, end time.Time) ([]Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var menus []Menu
	for _, m := range s.menus {
		if !m.Date.Before(start) && m.Date.Before(end) {
			menus = append(menus, copyMenu(m))
		}
	}
	sort.Slice(menus, func(i, j int) bool { return menus[i].HallKey < menus[j].HallKey })
	return menus, nil
}

func (s *MemoryStore) FindMenu(ctx context.Context, hallKey string) (*Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.menus[hallKey]
	if !ok {
		return nil, nil
	}
	menu := copyMenu(m)
	return &menu, nil
}

func (s *MemoryStore) FindAllDiningHalls(ctx context.Context) ([]DiningHall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	halls := make([]DiningHall, 0, len(s.halls))
	for _, h := range s.halls {
		halls = append(halls, copyHall(h))
	}
	sort.Slice(halls, func(i, j int) bool { return halls[i].Key < halls[j].Key })
	return halls, nil
}

func (s *MemoryStore) FindMealsByIDs(ctx context.Context, ids []string) ([]Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var meals []Meal
	for _, m := range s.meals {
		if slices.Contains(ids, m.ID) {
			meals = append(meals, copyMeal(m))
		}
	}
	sort.Slice(meals, func(i, j int) bool { return meals[i].Name < meals[j].Name })
	return meals, nil
}

func (s *MemoryStore) FindFoodTrucks(ctx context.Context, hereTodayOnly bool) ([]FoodTruck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trucks []FoodTruck
	for _, t := range s.trucks {
		if hereTodayOnly && !t.HereToday {
			continue
		}
		trucks = append(trucks, copyTruck(t))
	}
	sort.Slice(trucks, func(i, j int) bool { return trucks[i].Name < trucks[j].Name })
	return trucks, nil
}

func (s *MemoryStore) UpsertDiningHall(ctx context.Context, name string, patch DiningHallPatch) (*DiningHall, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := HallKey(name)
	now := s.now()
	hall, ok := s.halls[key]
	if !ok {
		hall = DiningHall{Key: key, Name: patch.Name, CommentIDs: []string{}, CreatedAt: now}
	}
	hall.Location = patch.Location
	hall.Hours = copyPeriods(nonNilPeriods(patch.Hours))
	hall.UpdatedAt = now
	s.halls[key] = hall

	result := copyHall(hall)
	return &result, nil
}

func (s *MemoryStore) UpsertMeal(ctx context.Context, name string, set MealSet, insert MealInsert) (*Meal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	meal, ok := s.meals[name]
	if !ok {
		meal = Meal{
			ID:             uuid.NewString(),
			Name:           name,
			DietaryTags:    slices.Clone(nonNilStrings(insert.DietaryTags)),
			FavoritesCount: insert.FavoritesCount,
			DiningHall:     insert.DiningHall,
			CreatedAt:      now,
		}
	}
	meal.Description = set.Description
	meal.Category = set.Category
	meal.HereToday = set.HereToday
	meal.UpdatedAt = now
	s.meals[name] = meal

	result := copyMeal(meal)
	return &result, nil
}

func (s *MemoryStore) ResetAllMeals(ctx context.Context, patch MealReset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, meal := range s.meals {
		meal.HereToday = patch.HereToday
		s.meals[name] = meal
	}
	return nil
}

func (s *MemoryStore) UpsertMenu(ctx context.Context, hallKey string, menu Menu) (*Menu, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	menu.HallKey = hallKey
	menu.UpdatedAt = s.now()
	stored := copyMenu(menu)
	s.menus[hallKey] = stored

	result := copyMenu(stored)
	return &result, nil
}

func (s *MemoryStore) ResetAllFoodTrucks(ctx context.Context, patch FoodTruckReset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, truck := range s.trucks {
		truck.HereToday = patch.HereToday
		truck.Hours = copyPeriods(nonNilPeriods(patch.Hours))
		truck.DailyLocation = patch.DailyLocation
		s.trucks[name] = truck
	}
	return nil
}

func (s *MemoryStore) UpsertFoodTruck(ctx context.Context, name string, set FoodTruckSet, insert FoodTruckInsert) (*FoodTruck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	truck, ok := s.trucks[name]
	if !ok {
		truck = FoodTruck{Name: name, FavoriteCount: insert.FavoriteCount, CreatedAt: now}
	}
	truck.DailyLocation = set.DailyLocation
	truck.Hours = copyPeriods(nonNilPeriods(set.Hours))
	truck.HereToday = set.HereToday
	truck.UpdatedAt = now
	s.trucks[name] = truck

	result := copyTruck(truck)
	return &result, nil
}

// SetFavoritesCount lets tests and the social subsystem simulate accumulated favorites.
func (s *MemoryStore) SetFavoritesCount(name string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meal, ok := s.meals[name]; ok {
		meal.FavoritesCount = count
		s.meals[name] = meal
	}
}

// Meals returns every stored meal ordered by name.
func (s *MemoryStore) Meals() []Meal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meals := make([]Meal, 0, len(s.meals))
	for _, m := range s.meals {
		meals = append(meals, copyMeal(m))
	}
	sort.Slice(meals, func(i, j int) bool { return meals[i].Name < meals[j].Name })
	return meals
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyPeriods(p []timewindow.Period) []timewindow.Period {
	if p == nil {
		return nil
	}
	out := make([]timewindow.Period, len(p))
	for i, period := range p {
		out[i] = period
		if period.Open != nil {
			open := *period.Open
			out[i].Open = &open
		}
		if period.Close != nil {
			closes := *period.Close
			out[i].Close = &closes
		}
	}
	return out
}

func copyHall(h DiningHall) DiningHall {
	h.Hours = copyPeriods(h.Hours)
	h.CommentIDs = slices.Clone(h.CommentIDs)
	return h
}

func copyMeal(m Meal) Meal {
	m.DietaryTags = slices.Clone(m.DietaryTags)
	return m
}

func copyTruck(t FoodTruck) FoodTruck {
	t.Hours = copyPeriods(t.Hours)
	return t
}

func copyMenu(m Menu) Menu {
	periods := make([]MenuPeriod, len(m.MealPeriods))
	for i, p := range m.MealPeriods {
		stations := make([]MenuStation, len(p.Stations))
		for j, st := range p.Stations {
			stations[j] = MenuStation{Name: st.Name, Meals: slices.Clone(st.Meals)}
		}
		periods[i] = MenuPeriod{Name: p.Name, Stations: stations}
	}
	m.MealPeriods = periods
	return m
}
