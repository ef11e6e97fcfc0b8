package telegram

import (
	"fmt"
	"strings"

	"meal-planner-bot/internal/meal"
	"meal-planner-bot/internal/shopping"
)

func formatPlan(plan meal.WeekPlan, names map[string]string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Meal Plan* (week of %s)\n", plan.WeekStart.Format("Jan 2")))
	if plan.Status == meal.StatusConfirmed {
		sb.WriteString("_Confirmed_\n")
	} else {
		sb.WriteString("_Draft_\n")
	}
	sb.WriteString("\n")

	for _, day := range meal.Days {
		name, ok := names[day]
		if !ok {
			name = "-"
		}
		sb.WriteString(fmt.Sprintf("*%s*: %s\n", meal.DayLabels[day], name))
	}
	return sb.String()
}

// formatShoppingList groups items by section, sections in mapping table order
// with the catch-all last.
func formatShoppingList(items []meal.Ingredient, mappings []meal.CategoryMapping) string {
	if len(items) == 0 {
		return "🛒 *Shopping List*\n\n_Empty_"
	}

	bySection := make(map[string][]string)
	for _, item := range items {
		section := shopping.SectionFor(item.Name, mappings)
		bySection[section] = append(bySection[section], shopping.FormatIngredient(item))
	}

	var order []string
	seen := make(map[string]bool)
	for _, m := range mappings {
		if !seen[m.Section] && len(bySection[m.Section]) > 0 {
			order = append(order, m.Section)
			seen[m.Section] = true
		}
	}
	if !seen[meal.SectionOther] && len(bySection[meal.SectionOther]) > 0 {
		order = append(order, meal.SectionOther)
	}

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	for _, section := range order {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", section))
		for _, line := range bySection[section] {
			sb.WriteString(fmt.Sprintf("• %s\n", line))
		}
	}
	return sb.String()
}

func formatReport(report *shopping.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 *Shopping List Sync*: %d added, %d skipped\n", len(report.Added), len(report.Skipped)))
	for _, item := range report.Added {
		sb.WriteString(fmt.Sprintf("• %s\n", item))
	}
	if len(report.Skipped) > 0 {
		sb.WriteString("\n_Already on the list:_\n")
		for _, item := range report.Skipped {
			sb.WriteString(fmt.Sprintf("• %s\n", item))
		}
	}
	return sb.String()
}

func formatMealList(meals []meal.Meal) string {
	var sb strings.Builder
	sb.WriteString("🍽 *Meal Catalog*\n\n")
	for _, m := range meals {
		sb.WriteString(fmt.Sprintf("• `%d` %s", m.ID, m.Name))
		if m.Cuisine != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", m.Cuisine))
		}
		if m.Staple {
			sb.WriteString(" ⭐")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatMealDetail(m meal.Meal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s* (`%d`)\n", m.Name, m.ID))
	if m.Cuisine != "" {
		sb.WriteString(fmt.Sprintf("Cuisine: %s\n", m.Cuisine))
	}
	sb.WriteString(fmt.Sprintf("Serves: %d\n", m.Servings))
	if len(m.Ingredients) > 0 {
		sb.WriteString("\n*Ingredients*\n")
		for _, ing := range m.Ingredients {
			sb.WriteString(fmt.Sprintf("• %s\n", shopping.FormatIngredient(ing)))
		}
	}
	return sb.String()
}

func formatTodayMeal(day string, m meal.Meal, instructions string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *%s: %s* (serves %d)\n", meal.DayLabels[day], m.Name, m.Servings))
	if len(m.Ingredients) > 0 {
		sb.WriteString("\n*Ingredients*\n")
		for _, ing := range m.Ingredients {
			sb.WriteString(fmt.Sprintf("• %s\n", shopping.FormatIngredient(ing)))
		}
	}
	if instructions != "" {
		sb.WriteString(fmt.Sprintf("\n*Recipe*\n%s\n", instructions))
	}
	return sb.String()
}
