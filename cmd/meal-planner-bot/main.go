package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-planner-bot/internal/catalog"
	"meal-planner-bot/internal/clipper"
	"meal-planner-bot/internal/config"
	"meal-planner-bot/internal/database"
	"meal-planner-bot/internal/llm"
	"meal-planner-bot/internal/metrics"
	"meal-planner-bot/internal/planner"
	"meal-planner-bot/internal/shopping"
	"meal-planner-bot/internal/suggest"
	"meal-planner-bot/internal/telegram"
	"meal-planner-bot/internal/todoist"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Initialize Infrastructure
	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer geminiClient.Close()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := catalog.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	todoistClient, err := todoist.NewClient(cfg.TodoistAPIToken, cfg.TodoistProject)
	if err != nil {
		log.Fatalf("Failed to initialize Todoist client: %v", err)
	}

	// 3. Initialize Services
	synchronizer := shopping.NewSynchronizer(todoistClient)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	service := planner.NewService(repo, synchronizer, rnd)
	suggester := suggest.NewGenerator(geminiClient)
	recipeClipper := clipper.NewClipper(geminiClient)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, service, recipeClipper, suggester, metricsStore, repo, todoistClient)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 5. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
