package shopping

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"meal-planner-bot/internal/meal"
)

// Task is one entry in the external task list.
type Task struct {
	ID      string
	Content string
}

// TaskTracker is the external list-like store the shopping list is merged
// into. Implementations handle their own transient-connection retry.
type TaskTracker interface {
	ListTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, content, section string) (*Task, error)
}

// Report summarizes one synchronization run. Updated is always empty: there
// is no quantity-merge path, matched items are skipped instead.
type Report struct {
	Added   []string
	Updated []string
	Skipped []string
}

// SyncError is returned when a synchronization run aborts partway. Report
// holds whatever was built before the failure; tasks already created remain
// created.
type SyncError struct {
	Report *Report
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("shopping list sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Synchronizer merges aggregated ingredients into a task tracker.
type Synchronizer struct {
	tracker TaskTracker
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(tracker TaskTracker) *Synchronizer {
	return &Synchronizer{tracker: tracker}
}

// Sync merges the given ingredients into the tracker without creating obvious
// duplicates. An ingredient whose lowercased name matches any existing task
// text by the symmetric substring test is recorded as skipped; everything
// else is created under its mapped section. The substring test will under-
// and over-match on occasion; that is the intended behavior, not a defect.
func (s *Synchronizer) Sync(ctx context.Context, items []meal.Ingredient, mappings []meal.CategoryMapping) (*Report, error) {
	report := &Report{}

	existing, err := s.tracker.ListTasks(ctx)
	if err != nil {
		return report, &SyncError{Report: report, Err: err}
	}

	for _, item := range items {
		display := FormatIngredient(item)

		if matchesExisting(existing, item.Name) {
			report.Skipped = append(report.Skipped, display)
			continue
		}

		section := SectionFor(item.Name, mappings)
		if _, err := s.tracker.CreateTask(ctx, display, section); err != nil {
			return report, &SyncError{Report: report, Err: err}
		}
		report.Added = append(report.Added, display)
	}

	return report, nil
}

// matchesExisting applies the symmetric substring test: a task counts as a
// match if either string contains the other.
func matchesExisting(tasks []Task, name string) bool {
	nameLower := strings.ToLower(name)
	for _, task := range tasks {
		content := strings.ToLower(task.Content)
		if strings.Contains(content, nameLower) || strings.Contains(nameLower, content) {
			return true
		}
	}
	return false
}

// SectionFor returns the section of the first mapping whose keyword is a
// case-insensitive substring of name, in table order, or the catch-all
// section when nothing matches.
func SectionFor(name string, mappings []meal.CategoryMapping) string {
	nameLower := strings.ToLower(name)
	for _, m := range mappings {
		if m.Keyword == "" {
			continue
		}
		if strings.Contains(nameLower, strings.ToLower(m.Keyword)) {
			return m.Section
		}
	}
	return meal.SectionOther
}

// FormatIngredient renders an ingredient as task text: "name (3 cloves)", or
// "name (x3)" for count-based items. Integral quantities drop the decimal
// point.
func FormatIngredient(ing meal.Ingredient) string {
	qty := formatQuantity(ing.Quantity)
	if ing.Unit != "" {
		return fmt.Sprintf("%s (%s %s)", ing.Name, qty, ing.Unit)
	}
	return fmt.Sprintf("%s (x%s)", ing.Name, qty)
}

func formatQuantity(q float64) string {
	if q == math.Trunc(q) {
		return strconv.FormatInt(int64(q), 10)
	}
	return strconv.FormatFloat(q, 'g', -1, 64)
}
