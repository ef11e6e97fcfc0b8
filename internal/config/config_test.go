package config

import (
	"os"
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Success", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("TODOIST_API_TOKEN", "todoist_token")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "123, 456")
		setEnv("TELEGRAM_ADMIN_ID", "123")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GeminiAPIKey != "gemini_key" {
			t.Errorf("Expected GeminiAPIKey to be 'gemini_key', got '%s'", cfg.GeminiAPIKey)
		}
		if cfg.TodoistAPIToken != "todoist_token" {
			t.Errorf("Expected TodoistAPIToken to be 'todoist_token', got '%s'", cfg.TodoistAPIToken)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 456 {
			t.Errorf("Expected allowed user ids [123 456], got %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.AdminTelegramID != 123 {
			t.Errorf("Expected AdminTelegramID to be 123, got %d", cfg.AdminTelegramID)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("TODOIST_API_TOKEN", "todoist_token")
		os.Unsetenv("TODOIST_PROJECT")
		os.Unsetenv("DATABASE_PATH")
		os.Unsetenv("TELEGRAM_ALLOWED_USER_IDS")
		os.Unsetenv("TELEGRAM_ADMIN_ID")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.TodoistProject != "Groceries" {
			t.Errorf("Expected default project 'Groceries', got '%s'", cfg.TodoistProject)
		}
		if cfg.DatabasePath != "data/meal-planner.db" {
			t.Errorf("Expected default database path, got '%s'", cfg.DatabasePath)
		}
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		setEnv("TODOIST_API_TOKEN", "todoist_token")
		os.Unsetenv("GEMINI_API_KEY")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GEMINI_API_KEY, got nil")
		}
		expectedError := "GEMINI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("MissingTodoistToken", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		os.Unsetenv("TODOIST_API_TOKEN")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing TODOIST_API_TOKEN, got nil")
		}
		expectedError := "TODOIST_API_TOKEN environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("BadAllowedUserIDs", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("TODOIST_API_TOKEN", "todoist_token")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "123,abc")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for bad TELEGRAM_ALLOWED_USER_IDS, got nil")
		}
	})
}
