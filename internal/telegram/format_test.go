package telegram

import (
	"strings"
	"testing"
	"time"

	"meal-planner-bot/internal/meal"
	"meal-planner-bot/internal/shopping"
)

func TestFormatPlan(t *testing.T) {
	plan := meal.WeekPlan{
		WeekStart: time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		Slots:     map[string]int64{"mon": 1, "tue": 2},
		Status:    meal.StatusDraft,
	}
	names := map[string]string{"mon": "Tacos", "tue": "Garlic Pasta"}

	output := formatPlan(plan, names)

	if !strings.Contains(output, "week of Aug 17") {
		t.Error("Missing week start in header")
	}
	if !strings.Contains(output, "_Draft_") {
		t.Error("Missing draft status")
	}
	if !strings.Contains(output, "*Monday*: Tacos") {
		t.Error("Missing Monday meal")
	}
	if !strings.Contains(output, "*Wednesday*: -") {
		t.Error("Expected a placeholder for an unassigned day")
	}

	// Days render in week order.
	if strings.Index(output, "*Monday*") > strings.Index(output, "*Tuesday*") {
		t.Error("Expected Monday before Tuesday")
	}
}

func TestFormatShoppingList(t *testing.T) {
	mappings := []meal.CategoryMapping{
		{Keyword: "garlic", Section: "Produce"},
		{Keyword: "beef", Section: "Meat"},
	}
	items := []meal.Ingredient{
		{Name: "garlic", Quantity: 3, Unit: "cloves"},
		{Name: "ground beef", Quantity: 1, Unit: "lb"},
		{Name: "paprika", Quantity: 1, Unit: "tsp"},
	}

	output := formatShoppingList(items, mappings)

	if !strings.Contains(output, "*Produce*") {
		t.Error("Missing Produce section")
	}
	if !strings.Contains(output, "• garlic (3 cloves)") {
		t.Error("Missing formatted garlic item")
	}
	if !strings.Contains(output, "*Other*") {
		t.Error("Expected unmapped items under Other")
	}

	// Mapped sections come before the catch-all.
	if strings.Index(output, "*Meat*") > strings.Index(output, "*Other*") {
		t.Error("Expected Meat section before Other")
	}
}

func TestFormatShoppingListEmpty(t *testing.T) {
	output := formatShoppingList(nil, nil)
	if !strings.Contains(output, "_Empty_") {
		t.Errorf("Expected an empty list marker, got: %s", output)
	}
}

func TestFormatReport(t *testing.T) {
	report := &shopping.Report{
		Added:   []string{"garlic (3 cloves)"},
		Skipped: []string{"milk (x1)"},
	}

	output := formatReport(report)

	if !strings.Contains(output, "1 added, 1 skipped") {
		t.Error("Missing sync summary line")
	}
	if !strings.Contains(output, "• garlic (3 cloves)") {
		t.Error("Missing added item")
	}
	if !strings.Contains(output, "_Already on the list:_") {
		t.Error("Missing skipped section")
	}
}

func TestFormatMealList(t *testing.T) {
	meals := []meal.Meal{
		{ID: 1, Name: "Tacos", Cuisine: "Mexican", Staple: true},
		{ID: 2, Name: "Garlic Pasta"},
	}

	output := formatMealList(meals)

	if !strings.Contains(output, "`1` Tacos (Mexican) ⭐") {
		t.Errorf("Missing staple meal line, got: %s", output)
	}
	if !strings.Contains(output, "`2` Garlic Pasta\n") {
		t.Errorf("Missing plain meal line, got: %s", output)
	}
}

func TestFormatTodayMeal(t *testing.T) {
	m := meal.Meal{
		ID: 1, Name: "Garlic Pasta", Servings: 4,
		Ingredients: []meal.Ingredient{{Name: "garlic", Quantity: 3, Unit: "cloves"}},
	}

	output := formatTodayMeal("wed", m, "1. Boil pasta.")

	if !strings.Contains(output, "*Wednesday: Garlic Pasta* (serves 4)") {
		t.Error("Missing header line")
	}
	if !strings.Contains(output, "• garlic (3 cloves)") {
		t.Error("Missing ingredient line")
	}
	if !strings.Contains(output, "*Recipe*\n1. Boil pasta.") {
		t.Error("Missing recipe section")
	}
}
