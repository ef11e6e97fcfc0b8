package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"meal-planner-bot/internal/catalog"
	"meal-planner-bot/internal/config"
	"meal-planner-bot/internal/database"
	"meal-planner-bot/internal/meal"
	"meal-planner-bot/internal/metrics"
	"meal-planner-bot/internal/planner"
	"meal-planner-bot/internal/shopping"
	"meal-planner-bot/internal/todoist"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := catalog.NewRepository(db.SQL)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		service := newService(repo, nil)
		plan, err := service.Generate(ctx)
		if err != nil {
			log.Fatalf("Plan generation failed: %v", err)
		}
		printPlan(ctx, repo, plan)
	case "plan":
		service := newService(repo, nil)
		plan, err := service.Draft(ctx)
		if err != nil {
			log.Fatalf("Failed to load draft plan: %v", err)
		}
		if plan == nil {
			fmt.Println("No draft plan. Run 'generate' first.")
			return
		}
		printPlan(ctx, repo, plan)
	case "confirm":
		todoistClient, err := todoist.NewClient(cfg.TodoistAPIToken, cfg.TodoistProject)
		if err != nil {
			log.Fatalf("Failed to initialize Todoist client: %v", err)
		}
		service := newService(repo, shopping.NewSynchronizer(todoistClient))

		// Falls back to this week's confirmed plan so a failed sync can be
		// re-run.
		plan, err := service.PlanToConfirm(ctx)
		if err != nil {
			log.Fatalf("Failed to load plan: %v", err)
		}
		if plan == nil {
			fmt.Println("No plan to confirm this week. Run 'generate' first.")
			os.Exit(1)
		}

		result, err := service.Confirm(ctx, *plan)
		if err != nil {
			var syncErr *shopping.SyncError
			if errors.As(err, &syncErr) {
				fmt.Printf("Plan confirmed, but the shopping list sync failed partway: %v\n", syncErr.Err)
				printReport(syncErr.Report)
				fmt.Println("Re-run 'confirm' to finish the sync.")
				os.Exit(1)
			}
			log.Fatalf("Confirmation failed: %v", err)
		}
		fmt.Println("Plan confirmed.")
		printReport(result.Report)
	case "meals":
		meals, err := repo.ListMeals(ctx)
		if err != nil {
			log.Fatalf("Failed to load meals: %v", err)
		}
		for _, m := range meals {
			staple := ""
			if m.Staple {
				staple = " [staple]"
			}
			fmt.Printf("%3d  %s (%s, serves %d)%s\n", m.ID, m.Name, m.Cuisine, m.Servings, staple)
		}
	case "shopping":
		service := newService(repo, nil)
		plan, err := service.Draft(ctx)
		if err != nil {
			log.Fatalf("Failed to load draft plan: %v", err)
		}
		if plan == nil {
			fmt.Println("No draft plan. Run 'generate' first.")
			return
		}

		meals, err := service.PlanMeals(ctx, *plan)
		if err != nil {
			log.Fatalf("Failed to load plan meals: %v", err)
		}
		mappings, err := repo.CategoryMappings(ctx)
		if err != nil {
			log.Fatalf("Failed to load category mappings: %v", err)
		}
		for _, item := range shopping.Aggregate(meals) {
			fmt.Printf("%-12s %s\n", shopping.SectionFor(item.Name, mappings), shopping.FormatIngredient(item))
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metrics.NewStore(db.SQL).Cleanup(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func newService(repo *catalog.Repository, sync *shopping.Synchronizer) *planner.Service {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return planner.NewService(repo, sync, rnd)
}

func printPlan(ctx context.Context, repo *catalog.Repository, plan *meal.WeekPlan) {
	fmt.Printf("Week of %s (%s)\n", plan.WeekStart.Format("2006-01-02"), plan.Status)
	for _, day := range meal.Days {
		id, ok := plan.Slots[day]
		if !ok {
			fmt.Printf("  %-9s -\n", meal.DayLabels[day])
			continue
		}
		m, err := repo.GetMeal(ctx, id)
		if err != nil {
			log.Fatalf("Failed to load meal %d: %v", id, err)
		}
		name := fmt.Sprintf("(removed meal %d)", id)
		if m != nil {
			name = m.Name
		}
		fmt.Printf("  %-9s %s\n", meal.DayLabels[day], name)
	}
}

func printReport(report *shopping.Report) {
	fmt.Printf("Shopping list sync: %d added, %d skipped\n", len(report.Added), len(report.Skipped))
	for _, item := range report.Added {
		fmt.Printf("  + %s\n", item)
	}
	for _, item := range report.Skipped {
		fmt.Printf("  = %s\n", item)
	}
}

func printUsage() {
	fmt.Println("Usage: meal-planner-cli <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate           Generate a draft plan for this week")
	fmt.Println("  plan               Show the current draft plan")
	fmt.Println("  confirm            Confirm the draft and sync the shopping list")
	fmt.Println("  meals              List the meal catalog")
	fmt.Println("  shopping           Preview the draft's shopping list")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
