package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"meal-planner-bot/internal/llm"
	"meal-planner-bot/internal/meal"
)

const unitHint = `unit can be: "can", "lb", "oz", "cup", "cups", "tbsp", "tsp", "clove", "cloves", "bunch", "stalk", "stalks", or "" for whole items`

// Generator turns free-form requests into structured meal proposals via the
// language model. All outputs are ProposedMeals: they have no identity until
// the catalog stores them.
type Generator struct {
	textGen llm.TextGenerator
}

// NewGenerator creates a new Generator.
func NewGenerator(textGen llm.TextGenerator) *Generator {
	return &Generator{textGen: textGen}
}

// Options narrows meal idea generation.
type Options struct {
	Cuisine            string
	Constraints        string
	ExcludeIngredients []string
	Count              int
}

// MealIdeas asks the model for meal proposals with full ingredient lists,
// avoiding the names of meals already in the catalog.
func (g *Generator) MealIdeas(ctx context.Context, existing []meal.Meal, opts Options) ([]meal.ProposedMeal, llm.TokenUsage, error) {
	count := opts.Count
	if count <= 0 {
		count = 3
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d dinner meal idea(s) with full ingredient lists.\n", count)
	if opts.Cuisine != "" {
		fmt.Fprintf(&sb, "Cuisine: %s.\n", opts.Cuisine)
	}
	if opts.Constraints != "" {
		fmt.Fprintf(&sb, "Constraints: %s.\n", opts.Constraints)
	}
	if len(opts.ExcludeIngredients) > 0 {
		fmt.Fprintf(&sb, "Exclude these ingredients: %s.\n", strings.Join(opts.ExcludeIngredients, ", "))
	}
	if names := mealNames(existing, 30); len(names) > 0 {
		fmt.Fprintf(&sb, "Do not repeat these existing meals: %s.\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, `
Return strictly a JSON array of meal objects and nothing else. Each object must have:
- name (string)
- servings (int, default 4)
- cuisine (string, e.g. "Italian", "Mexican", "Asian", "American", "Mediterranean")
- staple (bool, true if it's a quick weeknight staple)
- ingredients: array of {name, quantity, unit} objects
  - %s
`, unitHint)

	resp, err := g.textGen.GenerateContent(ctx, sb.String())
	if err != nil {
		return nil, resp.Usage, fmt.Errorf("failed to get LLM response: %w", err)
	}

	var proposals []meal.ProposedMeal
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &proposals); err != nil {
		return nil, resp.Usage, fmt.Errorf("failed to unmarshal LLM response: %w. Response: %s", err, resp.Content)
	}
	for i := range proposals {
		if proposals[i].Servings == 0 {
			proposals[i].Servings = 4
		}
	}
	return proposals, resp.Usage, nil
}

// ParseMeal turns a user's free-form meal description ("chili, 4 servings,
// beans, 2 cans...") into a structured proposal.
func (g *Generator) ParseMeal(ctx context.Context, description string) (*meal.ProposedMeal, llm.TokenUsage, error) {
	prompt := fmt.Sprintf(`Parse the following meal description into a structured record.

Description: %s

Return strictly a JSON object and nothing else, with:
- name (string)
- servings (int, default 4)
- cuisine (string, best guess, e.g. "Italian", "Mexican", "Asian", "American")
- staple (bool, true if it reads like a quick weeknight staple)
- ingredients: array of {name, quantity, unit} objects
  - %s
`, description, unitHint)

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, resp.Usage, fmt.Errorf("failed to get LLM response: %w", err)
	}

	var proposal meal.ProposedMeal
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &proposal); err != nil {
		return nil, resp.Usage, fmt.Errorf("failed to unmarshal LLM response: %w. Response: %s", err, resp.Content)
	}
	if proposal.Servings == 0 {
		proposal.Servings = 4
	}
	return &proposal, resp.Usage, nil
}

// RecipeInstructions generates numbered cooking steps for an existing meal,
// folding in the user's notes when present.
func (g *Generator) RecipeInstructions(ctx context.Context, m meal.Meal, userNotes string) (string, llm.TokenUsage, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a concise, practical recipe for: %s (serves %d).\n\nIngredients:\n", m.Name, m.Servings)
	for _, ing := range m.Ingredients {
		fmt.Fprintf(&sb, "- %s", ing.Name)
		if ing.Quantity > 0 {
			fmt.Fprintf(&sb, " (%v %s)", ing.Quantity, ing.Unit)
		}
		sb.WriteString("\n")
	}
	if userNotes != "" {
		fmt.Fprintf(&sb, "\nUser notes to respect: %s\n", userNotes)
	}
	sb.WriteString("\nReturn only the numbered cooking steps as plain text, no preamble.")

	resp, err := g.textGen.GenerateContent(ctx, sb.String())
	if err != nil {
		return "", resp.Usage, fmt.Errorf("failed to get LLM response: %w", err)
	}
	return strings.TrimSpace(resp.Content), resp.Usage, nil
}

func mealNames(meals []meal.Meal, limit int) []string {
	names := make([]string, 0, limit)
	for _, m := range meals {
		if len(names) >= limit {
			break
		}
		names = append(names, m.Name)
	}
	return names
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractJSON strips markdown code fences when the model wraps its response
// in them.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}
