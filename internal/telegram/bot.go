package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"meal-planner-bot/internal/catalog"
	"meal-planner-bot/internal/clipper"
	"meal-planner-bot/internal/config"
	"meal-planner-bot/internal/llm"
	"meal-planner-bot/internal/meal"
	"meal-planner-bot/internal/metrics"
	"meal-planner-bot/internal/planner"
	"meal-planner-bot/internal/shopping"
	"meal-planner-bot/internal/suggest"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🍽 *Meal Planner Bot*

/plan - generate a draft plan for this week
/swap mon tue - swap two days of the draft
/replace wed 12 - put meal 12 on Wednesday
/confirm - confirm the draft and sync the shopping list
/shopping - preview the draft's shopping list
/today - today's meal and recipe
/meals - list the meal catalog
/add <description> - add a meal from a description
/suggest - get new meal ideas

Send a recipe URL to clip it into the catalog.`

// ListMaintainer clears the external shopping list, for the admin-only
// /clear command.
type ListMaintainer interface {
	DeleteAllTasks(ctx context.Context) error
}

// Bot wraps the Telegram API, the plan lifecycle service, and the AI helpers.
type Bot struct {
	api          *tgbotapi.BotAPI
	service      *planner.Service
	clipper      *clipper.Clipper
	suggester    *suggest.Generator
	metricsStore *metrics.Store
	catalog      catalog.Provider
	maintainer   ListMaintainer
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	service *planner.Service,
	clip *clipper.Clipper,
	suggester *suggest.Generator,
	metricsStore *metrics.Store,
	provider catalog.Provider,
	maintainer ListMaintainer,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		service:      service,
		clipper:      clip,
		suggester:    suggester,
		metricsStore: metricsStore,
		catalog:      provider,
		maintainer:   maintainer,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		if b.isAllowed(update.CallbackQuery.From.ID) {
			go b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()

	if strings.HasPrefix(msg.Text, "http://") || strings.HasPrefix(msg.Text, "https://") {
		b.handleClip(ctx, msg)
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.send(msg.Chat.ID, helpText)
	case "plan":
		b.handlePlan(ctx, msg.Chat.ID)
	case "swap":
		b.handleSwap(ctx, msg.Chat.ID, msg.CommandArguments())
	case "replace":
		b.handleReplace(ctx, msg.Chat.ID, msg.CommandArguments())
	case "confirm":
		b.handleConfirm(ctx, msg.Chat.ID)
	case "shopping":
		b.handleShopping(ctx, msg.Chat.ID)
	case "today":
		b.handleToday(ctx, msg.Chat.ID)
	case "meals":
		b.handleMeals(ctx, msg.Chat.ID)
	case "add":
		b.handleAdd(ctx, msg.Chat.ID, msg.CommandArguments())
	case "suggest":
		b.handleSuggest(ctx, msg.Chat.ID, msg.CommandArguments())
	case "clear":
		b.handleClear(ctx, msg)
	case "metrics":
		b.handleMetricsRequest(msg)
	default:
		b.send(msg.Chat.ID, helpText)
	}
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	if query.Data == "confirm" {
		edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, "🛒 *Confirming and syncing...*")
		edit.ParseMode = "Markdown"
		b.api.Send(edit)
		b.handleConfirm(ctx, query.Message.Chat.ID)
	}
}

func (b *Bot) handlePlan(ctx context.Context, chatID int64) {
	plan, err := b.service.Generate(ctx)
	if err != nil {
		if errors.Is(err, planner.ErrEmptyCatalog) {
			b.send(chatID, "🫙 The meal catalog is empty. Add meals with /add or by sending a recipe URL.")
			return
		}
		b.sendError(chatID, "Error generating plan", err)
		return
	}

	names, err := b.slotNames(ctx, *plan)
	if err != nil {
		b.sendError(chatID, "Error loading plan meals", err)
		return
	}

	reply := tgbotapi.NewMessage(chatID, formatPlan(*plan, names))
	reply.ParseMode = "Markdown"
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm & Sync", "confirm"),
		),
	)
	b.api.Send(reply)
}

func (b *Bot) handleSwap(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) != 2 {
		b.send(chatID, "Usage: /swap mon tue")
		return
	}

	plan, err := b.requireDraft(ctx, chatID)
	if err != nil || plan == nil {
		return
	}

	updated, err := b.service.Swap(ctx, *plan, fields[0], fields[1])
	if err != nil {
		if errors.Is(err, planner.ErrInvalidSlot) {
			b.send(chatID, "Days must be one of: mon tue wed thu fri sat sun")
			return
		}
		b.sendError(chatID, "Error swapping days", err)
		return
	}
	b.sendPlanWithNames(ctx, chatID, *updated)
}

func (b *Bot) handleReplace(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) != 2 {
		b.send(chatID, "Usage: /replace wed 12")
		return
	}

	mealID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		b.send(chatID, "The second argument must be a meal id (see /meals).")
		return
	}

	m, err := b.catalog.GetMeal(ctx, mealID)
	if err != nil {
		b.sendError(chatID, "Error loading meal", err)
		return
	}
	if m == nil {
		b.send(chatID, fmt.Sprintf("No meal with id %d (see /meals).", mealID))
		return
	}

	plan, err := b.requireDraft(ctx, chatID)
	if err != nil || plan == nil {
		return
	}

	updated, err := b.service.Replace(ctx, *plan, fields[0], mealID)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidSlot) {
			b.send(chatID, "Days must be one of: mon tue wed thu fri sat sun")
			return
		}
		b.sendError(chatID, "Error replacing meal", err)
		return
	}
	b.sendPlanWithNames(ctx, chatID, *updated)
}

func (b *Bot) handleConfirm(ctx context.Context, chatID int64) {
	// Fall back to this week's confirmed plan when no draft exists, so a
	// partially failed sync can be re-run.
	plan, err := b.service.PlanToConfirm(ctx)
	if err != nil {
		b.sendError(chatID, "Error loading plan", err)
		return
	}
	if plan == nil {
		b.send(chatID, "No plan to confirm this week. Use /plan to generate one.")
		return
	}

	result, err := b.service.Confirm(ctx, *plan)
	if err != nil {
		var syncErr *shopping.SyncError
		if errors.As(err, &syncErr) {
			text := "⚠️ *Plan confirmed, but the shopping list sync failed partway.*\n\n" +
				formatReport(syncErr.Report) +
				"\nRe-run /confirm to finish the sync."
			b.send(chatID, text)
			return
		}
		b.sendError(chatID, "Error confirming plan", err)
		return
	}

	b.send(chatID, "✅ *Plan confirmed!*\n\n"+formatReport(result.Report))
}

func (b *Bot) handleShopping(ctx context.Context, chatID int64) {
	plan, err := b.requireDraft(ctx, chatID)
	if err != nil || plan == nil {
		return
	}

	meals, err := b.service.PlanMeals(ctx, *plan)
	if err != nil {
		b.sendError(chatID, "Error loading plan meals", err)
		return
	}

	mappings, err := b.catalog.CategoryMappings(ctx)
	if err != nil {
		b.sendError(chatID, "Error loading category mappings", err)
		return
	}

	b.send(chatID, formatShoppingList(shopping.Aggregate(meals), mappings))
}

func (b *Bot) handleToday(ctx context.Context, chatID int64) {
	plan, err := b.service.LastConfirmed(ctx)
	if err != nil {
		b.sendError(chatID, "Error loading confirmed plan", err)
		return
	}
	if plan == nil {
		b.send(chatID, "No confirmed plan yet. Use /plan and /confirm first.")
		return
	}

	day := meal.Days[(int(time.Now().Weekday())+6)%7]
	mealID, ok := plan.Slots[day]
	if !ok {
		b.send(chatID, "No meal planned for today.")
		return
	}

	m, err := b.catalog.GetMeal(ctx, mealID)
	if err != nil {
		b.sendError(chatID, "Error loading meal", err)
		return
	}
	if m == nil {
		b.send(chatID, "Today's meal was removed from the catalog. Pick a replacement with /replace.")
		return
	}

	recipe, err := b.catalog.Recipe(ctx, m.ID)
	if err != nil {
		b.sendError(chatID, "Error loading recipe", err)
		return
	}

	instructions := ""
	if recipe != nil {
		instructions = recipe.Instructions
	} else {
		b.send(chatID, fmt.Sprintf("🧑‍🍳 *Writing a recipe for %s...*", m.Name))

		start := time.Now()
		steps, usage, err := b.suggester.RecipeInstructions(ctx, *m, "")
		b.recordUsage("recipe", usage, start)
		if err != nil {
			b.sendError(chatID, "Error generating recipe", err)
			return
		}
		if err := b.catalog.SaveRecipe(ctx, m.ID, steps, ""); err != nil {
			log.Printf("Warning: failed to save recipe for meal %d: %v", m.ID, err)
		}
		instructions = steps
	}

	b.send(chatID, formatTodayMeal(day, *m, instructions))
}

func (b *Bot) handleMeals(ctx context.Context, chatID int64) {
	meals, err := b.catalog.ListMeals(ctx)
	if err != nil {
		b.sendError(chatID, "Error loading meals", err)
		return
	}
	if len(meals) == 0 {
		b.send(chatID, "🫙 The meal catalog is empty. Add meals with /add or by sending a recipe URL.")
		return
	}
	b.send(chatID, formatMealList(meals))
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, description string) {
	description = strings.TrimSpace(description)
	if description == "" {
		b.send(chatID, "Usage: /add chili, 6 servings, ground beef 1 lb, kidney beans 2 cans")
		return
	}

	b.send(chatID, "🧑‍🍳 *Parsing your meal...*")

	start := time.Now()
	proposal, usage, err := b.suggester.ParseMeal(ctx, description)
	b.recordUsage("add", usage, start)
	if err != nil {
		b.sendError(chatID, "Error parsing meal", err)
		return
	}

	id, err := b.catalog.AddMeal(ctx, *proposal)
	if err != nil {
		b.sendError(chatID, "Error saving meal", err)
		return
	}

	b.send(chatID, formatMealDetail(proposal.Stored(id)))
}

func (b *Bot) handleSuggest(ctx context.Context, chatID int64, args string) {
	existing, err := b.catalog.ListMeals(ctx)
	if err != nil {
		b.sendError(chatID, "Error loading meals", err)
		return
	}

	b.send(chatID, "🧑‍🍳 *Thinking up meal ideas...*")

	start := time.Now()
	proposals, usage, err := b.suggester.MealIdeas(ctx, existing, suggest.Options{
		Constraints: strings.TrimSpace(args),
		Count:       3,
	})
	b.recordUsage("suggest", usage, start)
	if err != nil {
		b.sendError(chatID, "Error generating ideas", err)
		return
	}
	if len(proposals) == 0 {
		b.send(chatID, "No ideas this time. Try again with different constraints.")
		return
	}

	var sb strings.Builder
	sb.WriteString("💡 *Meal Ideas*\n\n")
	for _, p := range proposals {
		id, err := b.catalog.AddMeal(ctx, p)
		if err != nil {
			b.sendError(chatID, "Error saving meal", err)
			return
		}
		sb.WriteString(fmt.Sprintf("• `%d` %s (%s, serves %d)\n", id, p.Name, p.Cuisine, p.Servings))
	}
	sb.WriteString("\nUse /replace to slot one into the draft.")
	b.send(chatID, sb.String())
}

func (b *Bot) handleClip(ctx context.Context, msg *tgbotapi.Message) {
	statusText := "✂️ *Clipping recipe...* \n(Extracting ingredients and steps)"
	replyMsg := tgbotapi.NewMessage(msg.Chat.ID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	start := time.Now()
	clipped, err := b.clipper.ClipURL(ctx, msg.Text)
	var finalText string
	if err != nil {
		log.Printf("Error clipping recipe: %v", err)
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error clipping recipe:*\n```\n%v\n```", safeErr)
	} else {
		b.recordUsage("clipper", clipped.Usage, start)

		id, saveErr := b.catalog.AddMeal(ctx, clipped.Proposal)
		if saveErr != nil {
			finalText = fmt.Sprintf("❌ *Error saving clipped meal:* %v", saveErr)
		} else {
			if clipped.Instructions != "" {
				if err := b.catalog.SaveRecipe(ctx, id, clipped.Instructions, "Clipped from "+clipped.SourceURL); err != nil {
					log.Printf("Warning: failed to save clipped recipe for meal %d: %v", id, err)
				}
			}
			finalText = fmt.Sprintf("✅ *Recipe clipped!*\n\n%s", formatMealDetail(clipped.Proposal.Stored(id)))
		}
	}

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func (b *Bot) handleClear(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.send(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	if err := b.maintainer.DeleteAllTasks(ctx); err != nil {
		b.sendError(msg.Chat.ID, "Error clearing shopping list", err)
		return
	}
	b.send(msg.Chat.ID, "🧹 Shopping list cleared.")
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.send(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(context.Background(), 7)
	if err != nil {
		b.send(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))

	b.send(msg.Chat.ID, sb.String())
}

// requireDraft loads the current draft plan, messaging the chat when there is
// none. A nil plan with a nil error means "already handled".
func (b *Bot) requireDraft(ctx context.Context, chatID int64) (*meal.WeekPlan, error) {
	plan, err := b.service.Draft(ctx)
	if err != nil {
		b.sendError(chatID, "Error loading draft plan", err)
		return nil, err
	}
	if plan == nil {
		b.send(chatID, "No draft plan yet. Use /plan to generate one.")
		return nil, nil
	}
	return plan, nil
}

// slotNames resolves a plan's slots to meal names, with a placeholder for
// meals that no longer exist.
func (b *Bot) slotNames(ctx context.Context, plan meal.WeekPlan) (map[string]string, error) {
	names := make(map[string]string, len(plan.Slots))
	for day, id := range plan.Slots {
		m, err := b.catalog.GetMeal(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			names[day] = fmt.Sprintf("(removed meal %d)", id)
			continue
		}
		names[day] = m.Name
	}
	return names, nil
}

func (b *Bot) sendPlanWithNames(ctx context.Context, chatID int64, plan meal.WeekPlan) {
	names, err := b.slotNames(ctx, plan)
	if err != nil {
		b.sendError(chatID, "Error loading plan meals", err)
		return
	}
	b.send(chatID, formatPlan(plan, names))
}

func (b *Bot) recordUsage(agentName string, usage llm.TokenUsage, start time.Time) {
	if err := b.metricsStore.RecordUsage(context.Background(), agentName, usage, time.Since(start)); err != nil {
		log.Printf("Warning: failed to record %s usage: %v", agentName, err)
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	b.api.Send(msg)
}

func (b *Bot) sendError(chatID int64, prefix string, err error) {
	log.Printf("%s: %v", prefix, err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.send(chatID, fmt.Sprintf("❌ *%s:*\n```\n%v\n```", prefix, safeErr))
}
