package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ Repository = (*SQLiteStore)(nil)

// SQLiteStore persists the four collections as rows with JSON columns for
// nested documents.
type SQLiteStore struct {
	db  *DB
	now func() time.Time
}

func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const hallColumns = `hall_key, name, location, hours, comment_ids, created_at, updated_at`

func scanHall(row rowScanner) (*DiningHall, error) {
	var hall DiningHall
	var hours, comments string
	var createdAt, updatedAt int64
	if err := row.Scan(&hall.Key, &hall.Name, &hall.Location, &hours, &comments, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(hours), &hall.Hours); err != nil {
		return nil, fmt.Errorf("failed to decode hours of %s: %w", hall.Key, err)
	}
	if err := json.Unmarshal([]byte(comments), &hall.CommentIDs); err != nil {
		return nil, fmt.Errorf("failed to decode comment ids of %s: %w", hall.Key, err)
	}
	hall.CreatedAt = time.Unix(createdAt, 0)
	hall.UpdatedAt = time.Unix(updatedAt, 0)
	return &hall, nil
}

const mealColumns = `id, name, description, category, dietary_tags, here_today, favorites_count, dining_hall, created_at, updated_at`

func scanMeal(row rowScanner) (*Meal, error) {
	var meal Meal
	var tags string
	var createdAt, updatedAt int64
	if err := row.Scan(&meal.ID, &meal.Name, &meal.Description, &meal.Category, &tags,
		&meal.HereToday, &meal.FavoritesCount, &meal.DiningHall, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &meal.DietaryTags); err != nil {
		return nil, fmt.Errorf("failed to decode dietary tags of %s: %w", meal.Name, err)
	}
	meal.CreatedAt = time.Unix(createdAt, 0)
	meal.UpdatedAt = time.Unix(updatedAt, 0)
	return &meal, nil
}

const menuColumns = `hall_key, hall_name, date, meal_periods, updated_at`

func scanMenu(row rowScanner) (*Menu, error) {
	var menu Menu
	var periods string
	var date, updatedAt int64
	if err := row.Scan(&menu.HallKey, &menu.HallName, &date, &periods, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(periods), &menu.MealPeriods); err != nil {
		return nil, fmt.Errorf("failed to decode meal periods of %s: %w", menu.HallKey, err)
	}
	menu.Date = time.Unix(date, 0)
	menu.UpdatedAt = time.Unix(updatedAt, 0)
	return &menu, nil
}

const truckColumns = `name, daily_location, hours, here_today, favorite_count, created_at, updated_at`

func scanTruck(row rowScanner) (*FoodTruck, error) {
	var truck FoodTruck
	var hours string
	var createdAt, updatedAt int64
	if err := row.Scan(&truck.Name, &truck.DailyLocation, &hours, &truck.HereToday,
		&truck.FavoriteCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(hours), &truck.Hours); err != nil {
		return nil, fmt.Errorf("failed to decode hours of %s: %w", truck.Name, err)
	}
	truck.CreatedAt = time.Unix(createdAt, 0)
	truck.UpdatedAt = time.Unix(updatedAt, 0)
	return &truck, nil
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *SQLiteStore) FindMenusByDateRange(ctx context.Context, start, end time.Time) ([]Menu, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+menuColumns+`
		FROM menus
		WHERE date >= ? AND date < ?
		ORDER BY hall_key
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to find menus by date range: %w", err)
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		menu, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		menus = append(menus, *menu)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu rows: %w", err)
	}

	return menus, nil
}

func (s *SQLiteStore) FindMenu(ctx context.Context, hallKey string) (*Menu, error) {
	menu, err := scanMenu(s.db.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM menus WHERE hall_key = ?`, hallKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}
	return menu, nil
}

func (s *SQLiteStore) FindAllDiningHalls(ctx context.Context) ([]DiningHall, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hallColumns+` FROM dining_halls ORDER BY hall_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to get dining halls: %w", err)
	}
	defer rows.Close()

	var halls []DiningHall
	for rows.Next() {
		hall, err := scanHall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dining hall row: %w", err)
		}
		halls = append(halls, *hall)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dining hall rows: %w", err)
	}

	return halls, nil
}

func (s *SQLiteStore) FindMealsByIDs(ctx context.Context, ids []string) ([]Meal, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+mealColumns+` FROM meals WHERE id IN (`+placeholders+`) ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get meals: %w", err)
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal row: %w", err)
		}
		meals = append(meals, *meal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meal rows: %w", err)
	}

	return meals, nil
}

func (s *SQLiteStore) FindFoodTrucks(ctx context.Context, hereTodayOnly bool) ([]FoodTruck, error) {
	query := `SELECT ` + truckColumns + ` FROM food_trucks`
	if hereTodayOnly {
		query += ` WHERE here_today = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get food trucks: %w", err)
	}
	defer rows.Close()

	var trucks []FoodTruck
	for rows.Next() {
		truck, err := scanTruck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food truck row: %w", err)
		}
		trucks = append(trucks, *truck)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food truck rows: %w", err)
	}

	return trucks, nil
}

func (s *SQLiteStore) UpsertDiningHall(ctx context.Context, name string, patch DiningHallPatch) (*DiningHall, error) {
	hours, err := encodeJSON(nonNilPeriods(patch.Hours))
	if err != nil {
		return nil, fmt.Errorf("failed to encode hours: %w", err)
	}

	now := s.now().Unix()
	hall, err := scanHall(s.db.QueryRowContext(ctx, `
		INSERT INTO dining_halls (hall_key, name, location, hours, comment_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, '[]', ?, ?)
		ON CONFLICT (hall_key) DO UPDATE SET
			location = excluded.location,
			hours = excluded.hours,
			updated_at = excluded.updated_at
		RETURNING `+hallColumns,
		HallKey(name), patch.Name, patch.Location, hours, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert dining hall: %w", err)
	}

	return hall, nil
}

func (s *SQLiteStore) UpsertMeal(ctx context.Context, name string, set MealSet, insert MealInsert) (*Meal, error) {
	tags, err := encodeJSON(nonNilStrings(insert.DietaryTags))
	if err != nil {
		return nil, fmt.Errorf("failed to encode dietary tags: %w", err)
	}

	now := s.now().Unix()
	meal, err := scanMeal(s.db.QueryRowContext(ctx, `
		INSERT INTO meals (id, name, description, category, dietary_tags, here_today, favorites_count, dining_hall, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			here_today = excluded.here_today,
			updated_at = excluded.updated_at
		RETURNING `+mealColumns,
		uuid.NewString(), name, set.Description, set.Category, tags, set.HereToday,
		insert.FavoritesCount, insert.DiningHall, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert meal: %w", err)
	}

	return meal, nil
}

func (s *SQLiteStore) ResetAllMeals(ctx context.Context, patch MealReset) error {
	_, err := s.db.ExecContext(ctx, `UPDATE meals SET here_today = ?`, patch.HereToday)
	if err != nil {
		return fmt.Errorf("failed to reset meals: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertMenu(ctx context.Context, hallKey string, menu Menu) (*Menu, error) {
	if menu.MealPeriods == nil {
		menu.MealPeriods = []MenuPeriod{}
	}
	periods, err := encodeJSON(menu.MealPeriods)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meal periods: %w", err)
	}

	stored, err := scanMenu(s.db.QueryRowContext(ctx, `
		INSERT INTO menus (hall_key, hall_name, date, meal_periods, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (hall_key) DO UPDATE SET
			hall_name = excluded.hall_name,
			date = excluded.date,
			meal_periods = excluded.meal_periods,
			updated_at = excluded.updated_at
		RETURNING `+menuColumns,
		hallKey, menu.HallName, menu.Date.Unix(), periods, s.now().Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert menu: %w", err)
	}

	return stored, nil
}

func (s *SQLiteStore) ResetAllFoodTrucks(ctx context.Context, patch FoodTruckReset) error {
	hours, err := encodeJSON(nonNilPeriods(patch.Hours))
	if err != nil {
		return fmt.Errorf("failed to encode hours: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE food_trucks
		SET here_today = ?, hours = ?, daily_location = ?
	`, patch.HereToday, hours, patch.DailyLocation)
	if err != nil {
		return fmt.Errorf("failed to reset food trucks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertFoodTruck(ctx context.Context, name string, set FoodTruckSet, insert FoodTruckInsert) (*FoodTruck, error) {
	hours, err := encodeJSON(nonNilPeriods(set.Hours))
	if err != nil {
		return nil, fmt.Errorf("failed to encode hours: %w", err)
	}

	now := s.now().Unix()
	truck, err := scanTruck(s.db.QueryRowContext(ctx, `
		INSERT INTO food_trucks (name, daily_location, hours, here_today, favorite_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			daily_location = excluded.daily_location,
			hours = excluded.hours,
			here_today = excluded.here_today,
			updated_at = excluded.updated_at
		RETURNING `+truckColumns,
		name, set.DailyLocation, hours, set.HereToday, insert.FavoriteCount, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert food truck: %w", err)
	}

	return truck, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
