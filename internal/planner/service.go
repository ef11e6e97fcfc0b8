package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"meal-planner-bot/internal/catalog"
	"meal-planner-bot/internal/meal"
	"meal-planner-bot/internal/shopping"
)

// ErrInvalidSlot is returned when a mutation names a slot key outside the 7
// canonical days. The plan is left unchanged.
var ErrInvalidSlot = errors.New("invalid plan slot")

// Service owns the plan lifecycle: generation, draft mutation, confirmation.
type Service struct {
	catalog catalog.Provider
	sync    *shopping.Synchronizer
	rnd     *rand.Rand

	now func() time.Time
}

// NewService creates a new Service. rnd is the sole randomness source for
// plan generation.
func NewService(provider catalog.Provider, sync *shopping.Synchronizer, rnd *rand.Rand) *Service {
	return &Service{
		catalog: provider,
		sync:    sync,
		rnd:     rnd,
		now:     time.Now,
	}
}

// MondayOf returns the Monday of the week containing t, truncated to a UTC date.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday-based weekday index
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Generate builds a new draft plan for the current week and upserts it keyed
// by week start. The previously confirmed plan's meal ids form the "last
// week" set the selection avoids.
func (s *Service) Generate(ctx context.Context) (*meal.WeekPlan, error) {
	all, err := s.catalog.ListMeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal catalog: %w", err)
	}

	last, err := s.catalog.LastConfirmedPlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load last confirmed plan: %w", err)
	}
	lastWeek := map[int64]bool{}
	if last != nil {
		for _, id := range last.Slots {
			lastWeek[id] = true
		}
	}

	ids, err := SelectMeals(all, lastWeek, s.rnd)
	if err != nil {
		return nil, err
	}

	slots := make(map[string]int64, len(meal.Days))
	for i, day := range meal.Days {
		slots[day] = ids[i]
	}

	plan := meal.WeekPlan{
		WeekStart: MondayOf(s.now()),
		Slots:     slots,
		Status:    meal.StatusDraft,
		CreatedAt: s.now(),
	}
	if err := s.catalog.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save draft plan: %w", err)
	}
	return &plan, nil
}

// Draft returns the current draft plan, or nil when none exists.
func (s *Service) Draft(ctx context.Context) (*meal.WeekPlan, error) {
	return s.catalog.DraftPlan(ctx)
}

// LastConfirmed returns the most recently confirmed plan by week start.
func (s *Service) LastConfirmed(ctx context.Context) (*meal.WeekPlan, error) {
	return s.catalog.LastConfirmedPlan(ctx)
}

// Swap exchanges the meals of two slots and persists the result. The plan's
// status is unchanged; swapping the same pair twice restores the original.
func (s *Service) Swap(ctx context.Context, plan meal.WeekPlan, day1, day2 string) (*meal.WeekPlan, error) {
	if !meal.IsDay(day1) || !meal.IsDay(day2) {
		return nil, fmt.Errorf("%w: %q/%q", ErrInvalidSlot, day1, day2)
	}

	updated := plan
	updated.Slots = plan.CloneSlots()
	updated.Slots[day1], updated.Slots[day2] = updated.Slots[day2], updated.Slots[day1]

	if err := s.catalog.SavePlan(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save plan after swap: %w", err)
	}
	return &updated, nil
}

// Replace assigns a new meal id to a slot and persists the result.
func (s *Service) Replace(ctx context.Context, plan meal.WeekPlan, day string, mealID int64) (*meal.WeekPlan, error) {
	if !meal.IsDay(day) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, day)
	}

	updated := plan
	updated.Slots = plan.CloneSlots()
	updated.Slots[day] = mealID

	if err := s.catalog.SavePlan(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save plan after replace: %w", err)
	}
	return &updated, nil
}

// PlanToConfirm returns the plan a confirm request should act on: the
// current draft when one exists, otherwise the current week's already
// confirmed plan so a failed sync can be re-run. Nil when there is neither.
func (s *Service) PlanToConfirm(ctx context.Context) (*meal.WeekPlan, error) {
	draft, err := s.catalog.DraftPlan(ctx)
	if err != nil || draft != nil {
		return draft, err
	}

	confirmed, err := s.catalog.LastConfirmedPlan(ctx)
	if err != nil {
		return nil, err
	}
	if confirmed != nil && confirmed.WeekStart.Equal(MondayOf(s.now())) {
		return confirmed, nil
	}
	return nil, nil
}

// ConfirmResult is the outcome of a confirmation run.
type ConfirmResult struct {
	Plan        meal.WeekPlan
	Ingredients []meal.Ingredient
	Report      *shopping.Report
}

// Confirm marks the plan confirmed, persists it (overwriting the draft row
// for the same week), aggregates its ingredients, and synchronizes them into
// the task tracker.
//
// The plan is persisted before synchronization runs: a sync failure leaves a
// confirmed plan with an incomplete shopping list, surfaced via the returned
// error which carries the partial report. Re-confirming re-runs aggregation
// and synchronization in full; the sync layer's heuristic dedup is the only
// guard against duplicate entries.
func (s *Service) Confirm(ctx context.Context, plan meal.WeekPlan) (*ConfirmResult, error) {
	now := s.now()
	confirmed := plan
	confirmed.Slots = plan.CloneSlots()
	confirmed.Status = meal.StatusConfirmed
	confirmed.ConfirmedAt = &now

	if err := s.catalog.SavePlan(ctx, confirmed); err != nil {
		return nil, fmt.Errorf("failed to save confirmed plan: %w", err)
	}

	meals, err := s.PlanMeals(ctx, confirmed)
	if err != nil {
		return nil, err
	}

	ingredients := shopping.Aggregate(meals)

	mappings, err := s.catalog.CategoryMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load category mappings: %w", err)
	}

	result := &ConfirmResult{Plan: confirmed, Ingredients: ingredients}
	result.Report, err = s.sync.Sync(ctx, ingredients, mappings)
	if err != nil {
		return result, err
	}
	return result, nil
}

// PlanMeals expands a plan's slots into meals, in day order. A slot whose
// meal no longer exists is skipped; the same meal in several slots appears
// once per slot.
func (s *Service) PlanMeals(ctx context.Context, plan meal.WeekPlan) ([]meal.Meal, error) {
	meals := make([]meal.Meal, 0, len(meal.Days))
	for _, day := range meal.Days {
		id, ok := plan.Slots[day]
		if !ok {
			continue
		}
		m, err := s.catalog.GetMeal(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load meal %d for %s: %w", id, day, err)
		}
		if m == nil {
			continue // dangling reference, tolerated
		}
		meals = append(meals, *m)
	}
	return meals, nil
}

// MealOptions lists catalog meals excluding the given ids, for replacement
// pickers.
func (s *Service) MealOptions(ctx context.Context, excludeIDs []int64) ([]meal.Meal, error) {
	all, err := s.catalog.ListMeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal catalog: %w", err)
	}

	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	options := make([]meal.Meal, 0, len(all))
	for _, m := range all {
		if !excluded[m.ID] {
			options = append(options, m)
		}
	}
	return options, nil
}
