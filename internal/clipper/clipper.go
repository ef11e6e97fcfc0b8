package clipper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meal-planner-bot/internal/llm"
	"meal-planner-bot/internal/meal"

	"github.com/PuerkitoBio/goquery"
)

// Clipper fetches a recipe page and extracts a structured meal from it.
type Clipper struct {
	textGen    llm.TextGenerator
	httpClient *http.Client
}

// ClippedMeal is the extraction result: the proposed meal plus the recipe
// steps found on the page.
type ClippedMeal struct {
	Proposal     meal.ProposedMeal
	Instructions string
	SourceURL    string
	Usage        llm.TokenUsage
}

// NewClipper creates a new Clipper instance.
func NewClipper(textGen llm.TextGenerator) *Clipper {
	return &Clipper{
		textGen:    textGen,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type extractedRecipe struct {
	Name        string            `json:"name"`
	Servings    int               `json:"servings"`
	Cuisine     string            `json:"cuisine"`
	Staple      bool              `json:"staple"`
	Ingredients []meal.Ingredient `json:"ingredients"`
	Steps       []string          `json:"steps"`
}

// ClipURL fetches the URL and extracts the recipe as a proposed meal.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*ClippedMeal, error) {
	content, err := c.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page content.
Return the result strictly as a JSON object with this structure:
{
  "name": "Recipe Title",
  "servings": 4,
  "cuisine": "e.g. Italian, Mexican, Asian, American",
  "staple": false,
  "ingredients": [{"name": "item", "quantity": 1, "unit": "lb"}, ...],
  "steps": ["Step 1 description", "Step 2 description", ...]
}
Use "" as unit for whole items counted by piece.

Page content:
%s
`, content)

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}

	var extracted extractedRecipe
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, resp.Content)
	}
	if extracted.Name == "" {
		return nil, fmt.Errorf("no recipe found at %s", url)
	}
	if extracted.Servings == 0 {
		extracted.Servings = 4
	}

	return &ClippedMeal{
		Proposal: meal.ProposedMeal{
			Name:        extracted.Name,
			Servings:    extracted.Servings,
			Cuisine:     extracted.Cuisine,
			Staple:      extracted.Staple,
			Ingredients: extracted.Ingredients,
		},
		Instructions: formatSteps(extracted.Steps),
		SourceURL:    url,
		Usage:        resp.Usage,
	}, nil
}

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}

func formatSteps(steps []string) string {
	var sb strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	return strings.TrimSpace(sb.String())
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
