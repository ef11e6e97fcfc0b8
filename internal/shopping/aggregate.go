package shopping

import (
	"sort"
	"strings"

	"meal-planner-bot/internal/meal"
)

// Aggregate sums ingredient quantities across all given meals, keyed by
// (lowercased name, unit). The same name in different units stays as separate
// line entries. Output is sorted by name, then unit, for determinism.
func Aggregate(meals []meal.Meal) []meal.Ingredient {
	type key struct {
		name string
		unit string
	}

	totals := make(map[key]float64)
	for _, m := range meals {
		for _, ing := range m.Ingredients {
			k := key{name: strings.ToLower(ing.Name), unit: ing.Unit}
			totals[k] += ing.Quantity
		}
	}

	keys := make([]key, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].unit < keys[j].unit
	})

	out := make([]meal.Ingredient, 0, len(keys))
	for _, k := range keys {
		out = append(out, meal.Ingredient{Name: k.name, Quantity: totals[k], Unit: k.unit})
	}
	return out
}
