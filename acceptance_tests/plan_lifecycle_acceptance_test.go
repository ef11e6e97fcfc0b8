package acceptance_tests

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"meal-planner-bot/internal/catalog"
	"meal-planner-bot/internal/database"
	"meal-planner-bot/internal/meal"
	"meal-planner-bot/internal/planner"
	"meal-planner-bot/internal/shopping"
)

// --- Mock Task Tracker ---
type mockTracker struct {
	tasks       []shopping.Task
	createCalls int
}

func (m *mockTracker) ListTasks(ctx context.Context) ([]shopping.Task, error) {
	return m.tasks, nil
}

func (m *mockTracker) CreateTask(ctx context.Context, content, section string) (*shopping.Task, error) {
	m.createCalls++
	t := shopping.Task{ID: fmt.Sprintf("t%d", m.createCalls), Content: content}
	m.tasks = append(m.tasks, t)
	return &t, nil
}

func seedCatalog(t *testing.T, repo *catalog.Repository) {
	t.Helper()
	ctx := context.Background()

	names := []string{"Tacos", "Garlic Pasta", "Chili", "Stir Fry", "Burgers", "Curry", "Pizza", "Salmon Bowl"}
	for i, name := range names {
		_, err := repo.AddMeal(ctx, meal.ProposedMeal{
			Name:     name,
			Servings: 4,
			Cuisine:  "American",
			Staple:   i == 0,
			Ingredients: []meal.Ingredient{
				{Name: "garlic", Quantity: 1, Unit: "cloves"},
				{Name: fmt.Sprintf("ingredient %d", i), Quantity: 1, Unit: "lb"},
			},
		})
		if err != nil {
			t.Fatalf("AddMeal failed: %v", err)
		}
	}

	if err := repo.AddCategoryMapping(ctx, meal.CategoryMapping{Keyword: "garlic", Section: "Produce"}); err != nil {
		t.Fatalf("AddCategoryMapping failed: %v", err)
	}
}

// TestPlanLifecycle drives the whole flow end to end: generate a draft, swap
// two days, confirm, and verify the shopping list lands in the tracker. A
// second confirmation must not duplicate tasks.
func TestPlanLifecycle(t *testing.T) {
	ctx := context.Background()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	repo := catalog.NewRepository(db.SQL)
	seedCatalog(t, repo)

	tracker := &mockTracker{}
	service := planner.NewService(repo, shopping.NewSynchronizer(tracker), rand.New(rand.NewSource(1)))

	// 1. Generate a draft for this week.
	plan, err := service.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if plan.Status != meal.StatusDraft {
		t.Errorf("Expected a draft plan, got %s", plan.Status)
	}
	if len(plan.Slots) != 7 {
		t.Fatalf("Expected 7 slots, got %d", len(plan.Slots))
	}

	// 2. Swap two days; the set of planned meals is unchanged.
	monBefore, tueBefore := plan.Slots["mon"], plan.Slots["tue"]
	swapped, err := service.Swap(ctx, *plan, "mon", "tue")
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if swapped.Slots["mon"] != tueBefore || swapped.Slots["tue"] != monBefore {
		t.Error("Expected mon and tue to exchange meals")
	}

	// 3. Confirm: the plan flips to confirmed and the list syncs.
	result, err := service.Confirm(ctx, *swapped)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if result.Plan.Status != meal.StatusConfirmed {
		t.Errorf("Expected a confirmed plan, got %s", result.Plan.Status)
	}
	if len(result.Report.Added) == 0 {
		t.Fatal("Expected tasks to be added to the tracker")
	}
	if tracker.createCalls != len(result.Report.Added) {
		t.Errorf("Expected %d create calls, got %d", len(result.Report.Added), tracker.createCalls)
	}

	// Aggregated garlic: one clove per planned meal, some meals may repeat.
	found := false
	for _, task := range tracker.tasks {
		if task.Content == "garlic (7 cloves)" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an aggregated garlic task, got %v", tracker.tasks)
	}

	// The draft row was overwritten, not duplicated.
	draft, err := service.Draft(ctx)
	if err != nil {
		t.Fatalf("Draft failed: %v", err)
	}
	if draft != nil {
		t.Error("Expected no draft to remain after confirmation")
	}
	confirmed, err := service.LastConfirmed(ctx)
	if err != nil {
		t.Fatalf("LastConfirmed failed: %v", err)
	}
	if confirmed == nil || !confirmed.WeekStart.Equal(plan.WeekStart) {
		t.Errorf("Expected the confirmed plan for week %v, got %v", plan.WeekStart, confirmed)
	}

	// 4. Re-confirming re-runs the sync; dedup skips everything.
	callsBefore := tracker.createCalls
	result2, err := service.Confirm(ctx, *confirmed)
	if err != nil {
		t.Fatalf("Re-confirm failed: %v", err)
	}
	if tracker.createCalls != callsBefore {
		t.Errorf("Expected no new tasks on re-confirm, got %d extra", tracker.createCalls-callsBefore)
	}
	if len(result2.Report.Added) != 0 {
		t.Errorf("Expected everything skipped on re-confirm, added: %v", result2.Report.Added)
	}
}
