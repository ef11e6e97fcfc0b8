package catalog

import (
	"context"
	"time"

	"meal-planner-bot/internal/meal"
)

// Recipe holds generated cooking instructions for a catalog meal.
type Recipe struct {
	MealID       int64     `json:"meal_id"`
	Instructions string    `json:"instructions"`
	UserNotes    string    `json:"user_notes"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Provider supplies the meal catalog and persists weekly plans.
//
// SavePlan is an upsert keyed by the plan's week start: saving a plan for an
// existing week overwrites that row in place, never appends a second one.
type Provider interface {
	ListMeals(ctx context.Context) ([]meal.Meal, error)
	GetMeal(ctx context.Context, id int64) (*meal.Meal, error)
	AddMeal(ctx context.Context, proposed meal.ProposedMeal) (int64, error)
	UpdateMeal(ctx context.Context, m meal.Meal) error

	SavePlan(ctx context.Context, plan meal.WeekPlan) error
	DraftPlan(ctx context.Context) (*meal.WeekPlan, error)
	LastConfirmedPlan(ctx context.Context) (*meal.WeekPlan, error)

	CategoryMappings(ctx context.Context) ([]meal.CategoryMapping, error)
	AddCategoryMapping(ctx context.Context, m meal.CategoryMapping) error

	Recipe(ctx context.Context, mealID int64) (*Recipe, error)
	SaveRecipe(ctx context.Context, mealID int64, instructions, userNotes string) error
}
