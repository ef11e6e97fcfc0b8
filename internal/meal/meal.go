package meal

import "time"

// Ingredient is a single line item of a meal.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"` // "can", "lb", "tsp", "cups", "cloves", "" for count
}

// Meal is a catalog entry with a stable identity.
type Meal struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Servings    int          `json:"servings"`
	Cuisine     string       `json:"cuisine"`
	Staple      bool         `json:"staple"`
	Ingredients []Ingredient `json:"ingredients"`
}

// ProposedMeal is a meal produced by an external generator (LLM, URL clipper)
// that has not been persisted yet. It carries no identity; the catalog assigns
// one when the meal is stored.
type ProposedMeal struct {
	Name        string       `json:"name"`
	Servings    int          `json:"servings"`
	Cuisine     string       `json:"cuisine"`
	Staple      bool         `json:"staple"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Stored binds a catalog-assigned id to a proposed meal.
func (p ProposedMeal) Stored(id int64) Meal {
	return Meal{
		ID:          id,
		Name:        p.Name,
		Servings:    p.Servings,
		Cuisine:     p.Cuisine,
		Staple:      p.Staple,
		Ingredients: p.Ingredients,
	}
}

// PlanStatus is the lifecycle state of a weekly plan.
type PlanStatus string

const (
	StatusDraft     PlanStatus = "draft"
	StatusConfirmed PlanStatus = "confirmed"
)

// WeekPlan assigns one meal id to each of the 7 canonical day slots.
// WeekStart is always the Monday of its week. Slot values may reference meals
// that no longer exist in the catalog; callers render those as placeholders.
type WeekPlan struct {
	WeekStart   time.Time        `json:"week_start"`
	Slots       map[string]int64 `json:"slots"` // {"mon": 1, "tue": 2, ...}
	Status      PlanStatus       `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty"`
}

// CloneSlots returns a copy of the slot map so mutations never alias the
// original plan.
func (p WeekPlan) CloneSlots() map[string]int64 {
	slots := make(map[string]int64, len(p.Slots))
	for day, id := range p.Slots {
		slots[day] = id
	}
	return slots
}

// CategoryMapping routes an ingredient to a shopping list section by keyword.
type CategoryMapping struct {
	Keyword     string `json:"keyword"`
	Section     string `json:"section"`
	DisplayName string `json:"display_name"`
}

// Days are the canonical slot keys, in week order.
var Days = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DayLabels maps slot keys to display names.
var DayLabels = map[string]string{
	"mon": "Monday",
	"tue": "Tuesday",
	"wed": "Wednesday",
	"thu": "Thursday",
	"fri": "Friday",
	"sat": "Saturday",
	"sun": "Sunday",
}

// SectionOther is the catch-all shopping list section.
const SectionOther = "Other"

// IsDay reports whether key is one of the 7 canonical slot keys.
func IsDay(key string) bool {
	_, ok := DayLabels[key]
	return ok
}
