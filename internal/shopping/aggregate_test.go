package shopping

import (
	"testing"

	"meal-planner-bot/internal/meal"
)

func TestAggregateEmpty(t *testing.T) {
	out := Aggregate(nil)
	if len(out) != 0 {
		t.Errorf("Expected empty output for empty input, got %v", out)
	}
}

func TestAggregateSumsByNameAndUnit(t *testing.T) {
	meals := []meal.Meal{
		{
			Name: "Pasta",
			Ingredients: []meal.Ingredient{
				{Name: "Garlic", Quantity: 2, Unit: "cloves"},
				{Name: "tomatoes", Quantity: 1, Unit: "can"},
			},
		},
		{
			Name: "Stir Fry",
			Ingredients: []meal.Ingredient{
				{Name: "garlic", Quantity: 3, Unit: "cloves"},
				{Name: "garlic", Quantity: 0.5, Unit: "tsp"}, // powdered, different unit
			},
		},
	}

	out := Aggregate(meals)
	if len(out) != 3 {
		t.Fatalf("Expected 3 line entries, got %d: %v", len(out), out)
	}

	// Sorted by (name, unit): garlic/cloves, garlic/tsp, tomatoes/can.
	if out[0].Name != "garlic" || out[0].Unit != "cloves" || out[0].Quantity != 5 {
		t.Errorf("Expected garlic 5 cloves first, got %+v", out[0])
	}
	if out[1].Name != "garlic" || out[1].Unit != "tsp" || out[1].Quantity != 0.5 {
		t.Errorf("Expected garlic 0.5 tsp second, got %+v", out[1])
	}
	if out[2].Name != "tomatoes" || out[2].Quantity != 1 {
		t.Errorf("Expected tomatoes last, got %+v", out[2])
	}
}

func TestAggregateCountsRepeatedMeals(t *testing.T) {
	taco := meal.Meal{
		Name: "Tacos",
		Ingredients: []meal.Ingredient{
			{Name: "tortillas", Quantity: 8, Unit: ""},
		},
	}

	// The same meal occupying two slots counts twice.
	out := Aggregate([]meal.Meal{taco, taco})
	if len(out) != 1 {
		t.Fatalf("Expected 1 line entry, got %d", len(out))
	}
	if out[0].Quantity != 16 {
		t.Errorf("Expected quantity 16 across both occurrences, got %v", out[0].Quantity)
	}
}
