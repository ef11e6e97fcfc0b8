package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"meal-planner-bot/internal/meal"
	"meal-planner-bot/internal/shopping"
)

const defaultBaseURL = "https://api.todoist.com/rest/v2"

// ErrConnection marks a transport-level failure talking to Todoist. Public
// calls retry exactly once after reconnecting; a second failure is surfaced.
var ErrConnection = errors.New("todoist connection error")

// Client talks to the Todoist REST API for a single project. It caches the
// project id and the project's section name to id mapping; reconnect rebuilds
// the HTTP session and re-resolves both.
type Client struct {
	token       string
	projectName string
	baseURL     string

	httpClient *http.Client
	projectID  string
	sectionIDs map[string]string
}

type project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type section struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}

type task struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// NewClient creates a Client and resolves the project and section ids for the
// named project.
func NewClient(token, projectName string) (*Client, error) {
	return newClient(token, projectName, defaultBaseURL)
}

func newClient(token, projectName, baseURL string) (*Client, error) {
	c := &Client{
		token:       token,
		projectName: projectName,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
	if err := c.resolveIDs(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

var _ shopping.TaskTracker = (*Client)(nil)

// reconnect replaces the HTTP session and re-resolves the cached project and
// section ids after a dropped connection.
func (c *Client) reconnect(ctx context.Context) error {
	c.httpClient = &http.Client{Timeout: 15 * time.Second}
	return c.resolveIDs(ctx)
}

func (c *Client) resolveIDs(ctx context.Context) error {
	var projects []project
	if err := c.get(ctx, "/projects", nil, &projects); err != nil {
		return err
	}

	c.projectID = ""
	for _, p := range projects {
		if p.Name == c.projectName {
			c.projectID = p.ID
			break
		}
	}
	if c.projectID == "" {
		return fmt.Errorf("todoist project %q not found", c.projectName)
	}

	var sections []section
	query := url.Values{"project_id": {c.projectID}}
	if err := c.get(ctx, "/sections", query, &sections); err != nil {
		return err
	}

	c.sectionIDs = make(map[string]string, len(sections))
	for _, s := range sections {
		c.sectionIDs[s.Name] = s.ID
	}
	return nil
}

// ListTasks returns all open tasks of the project.
func (c *Client) ListTasks(ctx context.Context) ([]shopping.Task, error) {
	tasks, err := c.listTasks(ctx)
	if errors.Is(err, ErrConnection) {
		if rerr := c.reconnect(ctx); rerr != nil {
			return nil, rerr
		}
		tasks, err = c.listTasks(ctx)
	}
	return tasks, err
}

func (c *Client) listTasks(ctx context.Context) ([]shopping.Task, error) {
	var raw []task
	query := url.Values{"project_id": {c.projectID}}
	if err := c.get(ctx, "/tasks", query, &raw); err != nil {
		return nil, err
	}

	tasks := make([]shopping.Task, 0, len(raw))
	for _, t := range raw {
		tasks = append(tasks, shopping.Task{ID: t.ID, Content: t.Content})
	}
	return tasks, nil
}

// CreateTask creates a task under the named section, falling back to the
// catch-all section when the project has no section by that name.
func (c *Client) CreateTask(ctx context.Context, content, sectionName string) (*shopping.Task, error) {
	created, err := c.createTask(ctx, content, sectionName)
	if errors.Is(err, ErrConnection) {
		if rerr := c.reconnect(ctx); rerr != nil {
			return nil, rerr
		}
		created, err = c.createTask(ctx, content, sectionName)
	}
	return created, err
}

func (c *Client) createTask(ctx context.Context, content, sectionName string) (*shopping.Task, error) {
	sectionID := c.sectionIDs[sectionName]
	if sectionID == "" {
		sectionID = c.sectionIDs[meal.SectionOther]
	}

	body := map[string]string{
		"content":    content,
		"project_id": c.projectID,
	}
	if sectionID != "" {
		body["section_id"] = sectionID
	}

	var created task
	if err := c.post(ctx, "/tasks", body, &created); err != nil {
		return nil, err
	}
	return &shopping.Task{ID: created.ID, Content: created.Content}, nil
}

// DeleteAllTasks removes every open task of the project.
func (c *Client) DeleteAllTasks(ctx context.Context) error {
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/tasks/"+t.ID, nil)
		if err != nil {
			return err
		}
		resp, err := c.do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
			return fmt.Errorf("todoist delete task %s: status %d", t.ID, resp.StatusCode)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("todoist api error: GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("todoist api error: POST %s: status %d", path, resp.StatusCode)
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// do executes the request, classifying transport failures as ErrConnection so
// callers can distinguish them from API errors.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return resp, nil
}
