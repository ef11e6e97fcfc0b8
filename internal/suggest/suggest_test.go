package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"meal-planner-bot/internal/llm"
	"meal-planner-bot/internal/meal"
)

// mockTextGenerator is a mock implementation of llm.TextGenerator for testing.
type mockTextGenerator struct {
	response    string
	shouldError bool
	lastPrompt  string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.lastPrompt = prompt
	if m.shouldError {
		return llm.ContentResponse{}, errors.New("LLM error")
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   llm.TokenUsage{Model: "test-model", PromptTokens: 10, CompletionTokens: 20},
	}, nil
}

func TestMealIdeas(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockGen := &mockTextGenerator{
			response: `[
				{"name": "Chicken Stir Fry", "servings": 4, "cuisine": "Asian", "staple": true,
				 "ingredients": [{"name": "chicken breast", "quantity": 1, "unit": "lb"}]},
				{"name": "Veggie Chili", "cuisine": "Mexican",
				 "ingredients": [{"name": "black beans", "quantity": 2, "unit": "can"}]}
			]`,
		}
		gen := NewGenerator(mockGen)

		proposals, usage, err := gen.MealIdeas(ctx, nil, Options{Count: 2})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(proposals) != 2 {
			t.Fatalf("Expected 2 proposals, got %d", len(proposals))
		}
		if proposals[0].Name != "Chicken Stir Fry" {
			t.Errorf("Expected name 'Chicken Stir Fry', got '%s'", proposals[0].Name)
		}
		if !proposals[0].Staple {
			t.Error("Expected the first proposal to be a staple")
		}
		if proposals[1].Servings != 4 {
			t.Errorf("Expected servings to default to 4, got %d", proposals[1].Servings)
		}
		if usage.CompletionTokens != 20 {
			t.Errorf("Expected 20 completion tokens, got %d", usage.CompletionTokens)
		}
	})

	t.Run("AvoidsExistingMeals", func(t *testing.T) {
		mockGen := &mockTextGenerator{response: `[]`}
		gen := NewGenerator(mockGen)

		existing := []meal.Meal{{ID: 1, Name: "Spaghetti Bolognese"}}
		if _, _, err := gen.MealIdeas(ctx, existing, Options{}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !strings.Contains(mockGen.lastPrompt, "Spaghetti Bolognese") {
			t.Error("Expected the prompt to list existing meal names")
		}
	})

	t.Run("StripsMarkdownFences", func(t *testing.T) {
		mockGen := &mockTextGenerator{
			response: "```json\n[{\"name\": \"Tacos\", \"ingredients\": []}]\n```",
		}
		gen := NewGenerator(mockGen)

		proposals, _, err := gen.MealIdeas(ctx, nil, Options{Count: 1})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(proposals) != 1 || proposals[0].Name != "Tacos" {
			t.Errorf("Unexpected proposals: %v", proposals)
		}
	})

	t.Run("LLMError", func(t *testing.T) {
		gen := NewGenerator(&mockTextGenerator{shouldError: true})

		_, _, err := gen.MealIdeas(ctx, nil, Options{})
		if err == nil {
			t.Fatal("Expected an error from the LLM client, got nil")
		}
		expectedError := "failed to get LLM response: LLM error"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		gen := NewGenerator(&mockTextGenerator{response: "this is not json"})

		_, _, err := gen.MealIdeas(ctx, nil, Options{})
		if err == nil {
			t.Fatal("Expected an error for invalid JSON, got nil")
		}
		if !strings.HasPrefix(err.Error(), "failed to unmarshal LLM response") {
			t.Errorf("Expected a JSON unmarshaling error, got: %v", err)
		}
	})
}

func TestParseMeal(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockGen := &mockTextGenerator{
			response: `{"name": "Chili", "servings": 6, "cuisine": "American", "staple": false,
				"ingredients": [{"name": "ground beef", "quantity": 1, "unit": "lb"},
				                {"name": "kidney beans", "quantity": 2, "unit": "can"}]}`,
		}
		gen := NewGenerator(mockGen)

		proposal, _, err := gen.ParseMeal(ctx, "chili, 6 servings, beef and beans")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if proposal.Name != "Chili" {
			t.Errorf("Expected name 'Chili', got '%s'", proposal.Name)
		}
		if proposal.Servings != 6 {
			t.Errorf("Expected 6 servings, got %d", proposal.Servings)
		}
		if len(proposal.Ingredients) != 2 {
			t.Errorf("Expected 2 ingredients, got %d", len(proposal.Ingredients))
		}
	})

	t.Run("DefaultsServings", func(t *testing.T) {
		mockGen := &mockTextGenerator{response: `{"name": "Toast", "ingredients": []}`}
		gen := NewGenerator(mockGen)

		proposal, _, err := gen.ParseMeal(ctx, "toast")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if proposal.Servings != 4 {
			t.Errorf("Expected servings to default to 4, got %d", proposal.Servings)
		}
	})
}

func TestRecipeInstructions(t *testing.T) {
	ctx := context.Background()
	m := meal.Meal{
		ID: 1, Name: "Garlic Pasta", Servings: 4,
		Ingredients: []meal.Ingredient{{Name: "garlic", Quantity: 3, Unit: "cloves"}},
	}

	mockGen := &mockTextGenerator{response: "1. Boil pasta.\n2. Saute garlic.\n"}
	gen := NewGenerator(mockGen)

	steps, usage, err := gen.RecipeInstructions(ctx, m, "extra spicy")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if steps != "1. Boil pasta.\n2. Saute garlic." {
		t.Errorf("Expected trimmed steps, got '%s'", steps)
	}
	if !strings.Contains(mockGen.lastPrompt, "extra spicy") {
		t.Error("Expected the prompt to include the user notes")
	}
	if !strings.Contains(mockGen.lastPrompt, "garlic") {
		t.Error("Expected the prompt to include the ingredients")
	}
	if usage.Model != "test-model" {
		t.Errorf("Expected usage model 'test-model', got '%s'", usage.Model)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Bare", `{"a": 1}`, `{"a": 1}`},
		{"Fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"FencedNoLang", "```\n[1, 2]\n```", `[1, 2]`},
		{"SurroundingText", "Here you go:\n```json\n{\"a\": 1}\n```\nEnjoy!", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
