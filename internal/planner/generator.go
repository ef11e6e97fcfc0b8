package planner

import (
	"errors"
	"math/rand"

	"meal-planner-bot/internal/meal"
)

// ErrEmptyCatalog is returned when generation is attempted with no meals.
var ErrEmptyCatalog = errors.New("no meals in the catalog")

// planSize is the number of slots in a weekly plan.
const planSize = 7

// SelectMeals picks exactly planSize meal ids from the catalog.
//
// Meals used last week are avoided where possible (at most one repeat when
// the fresh pool runs short), at least one staple is included when the pool
// has any, and cuisines are spread so no cuisine appears a third time while
// alternatives remain. All randomness comes from rnd so tests can force
// deterministic outcomes.
func SelectMeals(all []meal.Meal, lastWeek map[int64]bool, rnd *rand.Rand) ([]int64, error) {
	if len(all) == 0 {
		return nil, ErrEmptyCatalog
	}

	// Not enough meals: cycle through the catalog, repeats permitted.
	if len(all) < planSize {
		ids := make([]int64, 0, planSize)
		for i := 0; len(ids) < planSize; i++ {
			ids = append(ids, all[i%len(all)].ID)
		}
		return ids, nil
	}

	var fresh, repeated []meal.Meal
	for _, m := range all {
		if lastWeek[m.ID] {
			repeated = append(repeated, m)
		} else {
			fresh = append(fresh, m)
		}
	}

	// Prefer fresh meals; allow at most one repeat from last week.
	pool := fresh
	if len(fresh) < planSize && len(repeated) > 0 {
		pool = make([]meal.Meal, 0, len(fresh)+1)
		pool = append(pool, fresh...)
		pool = append(pool, repeated[0])
	}

	var staples []meal.Meal
	for _, m := range pool {
		if m.Staple {
			staples = append(staples, m)
		}
	}

	selected := make([]meal.Meal, 0, planSize)
	if len(staples) > 0 {
		selected = append(selected, staples[rnd.Intn(len(staples))])
	}

	remaining := without(pool, selected)
	rnd.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})

	// Fill remaining slots while maximising cuisine variety: skip a candidate
	// only when its cuisine already appears twice and enough alternatives
	// remain to still reach a full plan without it.
	for idx, m := range remaining {
		if len(selected) >= planSize {
			break
		}
		cuisineCount := 0
		for _, s := range selected {
			if s.Cuisine == m.Cuisine {
				cuisineCount++
			}
		}
		alternatives := len(remaining) - idx - 1
		needed := planSize - len(selected)
		if cuisineCount < 2 || alternatives < needed {
			selected = append(selected, m)
		}
	}

	// Still short: append whatever is left, ignoring the variety rule.
	if len(selected) < planSize {
		extra := without(pool, selected)
		rnd.Shuffle(len(extra), func(i, j int) {
			extra[i], extra[j] = extra[j], extra[i]
		})
		need := planSize - len(selected)
		if need > len(extra) {
			need = len(extra)
		}
		selected = append(selected, extra[:need]...)
	}

	// Pool exhausted before the week filled (few fresh meals and only one
	// repeat allowed): cycle the pool so every slot still gets a meal.
	for i := 0; len(selected) < planSize; i++ {
		selected = append(selected, pool[i%len(pool)])
	}

	// Final shuffle so slot order carries no signal about selection order.
	rnd.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	ids := make([]int64, 0, planSize)
	for _, m := range selected {
		ids = append(ids, m.ID)
		if len(ids) == planSize {
			break
		}
	}
	return ids, nil
}

// without returns the meals of pool not already in selected.
func without(pool, selected []meal.Meal) []meal.Meal {
	taken := make(map[int64]bool, len(selected))
	for _, m := range selected {
		taken[m.ID] = true
	}
	out := make([]meal.Meal, 0, len(pool))
	for _, m := range pool {
		if !taken[m.ID] {
			out = append(out, m)
		}
	}
	return out
}
