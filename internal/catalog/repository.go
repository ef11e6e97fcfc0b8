package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"meal-planner-bot/internal/meal"
)

const weekStartLayout = "2006-01-02"

// Repository is the SQLite-backed implementation of Provider.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

var _ Provider = (*Repository)(nil)

// ListMeals returns every meal in the catalog, oldest first.
func (r *Repository) ListMeals(ctx context.Context) ([]meal.Meal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, servings, cuisine, staple, ingredients FROM meals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	var meals []meal.Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// GetMeal retrieves a meal by id. Returns (nil, nil) when the meal is missing
// so callers can tolerate dangling plan slots.
func (r *Repository) GetMeal(ctx context.Context, id int64) (*meal.Meal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, servings, cuisine, staple, ingredients FROM meals WHERE id = ?`, id)

	m, err := scanMeal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// AddMeal persists a proposed meal and returns its newly assigned id.
func (r *Repository) AddMeal(ctx context.Context, proposed meal.ProposedMeal) (int64, error) {
	ingredients, err := json.Marshal(proposed.Ingredients)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO meals (name, servings, cuisine, staple, ingredients, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		proposed.Name, proposed.Servings, proposed.Cuisine, proposed.Staple, string(ingredients), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert meal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted meal id: %w", err)
	}
	return id, nil
}

// UpdateMeal overwrites a stored meal in place.
func (r *Repository) UpdateMeal(ctx context.Context, m meal.Meal) error {
	ingredients, err := json.Marshal(m.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE meals SET name = ?, servings = ?, cuisine = ?, staple = ?, ingredients = ?, updated_at = ?
		 WHERE id = ?`,
		m.Name, m.Servings, m.Cuisine, m.Staple, string(ingredients), time.Now().UTC(), m.ID)
	if err != nil {
		return fmt.Errorf("failed to update meal %d: %w", m.ID, err)
	}
	return nil
}

// SavePlan upserts a plan keyed by its week start. A draft row is overwritten
// when the plan is confirmed, rather than a second row being appended.
func (r *Repository) SavePlan(ctx context.Context, plan meal.WeekPlan) error {
	slots, err := json.Marshal(plan.Slots)
	if err != nil {
		return fmt.Errorf("failed to marshal plan slots: %w", err)
	}

	var confirmedAt sql.NullTime
	if plan.ConfirmedAt != nil {
		confirmedAt = sql.NullTime{Time: *plan.ConfirmedAt, Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO plans (week_start, slots, status, created_at, confirmed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(week_start) DO UPDATE SET
		   slots = excluded.slots,
		   status = excluded.status,
		   created_at = excluded.created_at,
		   confirmed_at = excluded.confirmed_at`,
		plan.WeekStart.Format(weekStartLayout), string(slots), string(plan.Status), plan.CreatedAt, confirmedAt)
	if err != nil {
		return fmt.Errorf("failed to save plan for week %s: %w", plan.WeekStart.Format(weekStartLayout), err)
	}
	return nil
}

// DraftPlan returns the most recently created draft plan, or nil.
func (r *Repository) DraftPlan(ctx context.Context) (*meal.WeekPlan, error) {
	return r.planByStatus(ctx, meal.StatusDraft, "created_at")
}

// LastConfirmedPlan returns the most recent confirmed plan by week start, or nil.
func (r *Repository) LastConfirmedPlan(ctx context.Context) (*meal.WeekPlan, error) {
	return r.planByStatus(ctx, meal.StatusConfirmed, "week_start")
}

func (r *Repository) planByStatus(ctx context.Context, status meal.PlanStatus, orderBy string) (*meal.WeekPlan, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT week_start, slots, status, created_at, confirmed_at FROM plans
		 WHERE status = ? ORDER BY %s DESC LIMIT 1`, orderBy), string(status))

	var (
		weekStart   string
		slotsJSON   string
		rowStatus   string
		createdAt   time.Time
		confirmedAt sql.NullTime
	)
	if err := row.Scan(&weekStart, &slotsJSON, &rowStatus, &createdAt, &confirmedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s plan: %w", status, err)
	}

	start, err := time.Parse(weekStartLayout, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse week start %q: %w", weekStart, err)
	}

	slots := map[string]int64{}
	if err := json.Unmarshal([]byte(slotsJSON), &slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan slots: %w", err)
	}

	plan := meal.WeekPlan{
		WeekStart: start,
		Slots:     slots,
		Status:    meal.PlanStatus(rowStatus),
		CreatedAt: createdAt,
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		plan.ConfirmedAt = &t
	}
	return &plan, nil
}

// CategoryMappings returns all keyword mappings in table order. Keywords are
// stored lowercased; the matching order downstream is the row order here.
func (r *Repository) CategoryMappings(ctx context.Context) ([]meal.CategoryMapping, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT keyword, section, display_name FROM category_mappings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list category mappings: %w", err)
	}
	defer rows.Close()

	var mappings []meal.CategoryMapping
	for rows.Next() {
		var m meal.CategoryMapping
		if err := rows.Scan(&m.Keyword, &m.Section, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan category mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// AddCategoryMapping inserts or replaces a keyword mapping.
func (r *Repository) AddCategoryMapping(ctx context.Context, m meal.CategoryMapping) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO category_mappings (keyword, section, display_name) VALUES (?, ?, ?)
		 ON CONFLICT(keyword) DO UPDATE SET section = excluded.section, display_name = excluded.display_name`,
		strings.ToLower(m.Keyword), m.Section, m.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to save category mapping %q: %w", m.Keyword, err)
	}
	return nil
}

// Recipe retrieves the stored instructions for a meal, or nil.
func (r *Repository) Recipe(ctx context.Context, mealID int64) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT meal_id, instructions, user_notes, generated_at FROM recipes WHERE meal_id = ?`, mealID)

	var rec Recipe
	if err := row.Scan(&rec.MealID, &rec.Instructions, &rec.UserNotes, &rec.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load recipe for meal %d: %w", mealID, err)
	}
	return &rec, nil
}

// SaveRecipe upserts the instructions for a meal.
func (r *Repository) SaveRecipe(ctx context.Context, mealID int64, instructions, userNotes string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recipes (meal_id, instructions, user_notes, generated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(meal_id) DO UPDATE SET
		   instructions = excluded.instructions,
		   user_notes = excluded.user_notes,
		   generated_at = excluded.generated_at`,
		mealID, instructions, userNotes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save recipe for meal %d: %w", mealID, err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMeal(s scanner) (meal.Meal, error) {
	var (
		m              meal.Meal
		ingredientsRaw string
	)
	if err := s.Scan(&m.ID, &m.Name, &m.Servings, &m.Cuisine, &m.Staple, &ingredientsRaw); err != nil {
		if err == sql.ErrNoRows {
			return meal.Meal{}, err
		}
		return meal.Meal{}, fmt.Errorf("failed to scan meal: %w", err)
	}
	if err := json.Unmarshal([]byte(ingredientsRaw), &m.Ingredients); err != nil {
		return meal.Meal{}, fmt.Errorf("failed to unmarshal ingredients for meal %d: %w", m.ID, err)
	}
	return m, nil
}
