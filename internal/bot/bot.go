package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/classbot/config"
	"github.com/tazhate/classbot/internal/scheduler"
	"github.com/tazhate/classbot/internal/service"
)

// PendingLister reports the reminders waiting to fire.
type PendingLister interface {
	Pending() []scheduler.PendingTrigger
}

type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	subjects *service.SubjectService
	tasks    *service.TaskService
	pending  PendingLister
	server   *http.Server
	now      func() time.Time
}

func New(cfg *config.Config, subjects *service.SubjectService, tasks *service.TaskService, pending PendingLister) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", api.Self.UserName)

	bot := &Bot{
		api:      api,
		cfg:      cfg,
		subjects: subjects,
		tasks:    tasks,
		pending:  pending,
		now:      time.Now,
	}

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "classes", Description: "📚 Weekly classes"},
		{Command: "addclass", Description: "➕ Add a class"},
		{Command: "tasks", Description: "📋 Tasks"},
		{Command: "addtask", Description: "📝 Add a task"},
		{Command: "pending", Description: "🔔 Upcoming reminders"},
		{Command: "help", Description: "❓ Command reference"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	_, err = b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		log.Printf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Printf("Webhook set to: %s", webhookURL)
	return nil
}

// Start serves updates until ctx is done: through a webhook when WebhookURL
// is set, by long polling otherwise. The HTTP server with /health and the
// JSON API runs in both modes.
func (b *Bot) Start(ctx context.Context) error {
	mux := b.routes()

	var updates tgbotapi.UpdatesChannel
	if b.cfg.WebhookURL != "" {
		if err := b.SetupWebhook(); err != nil {
			return err
		}
		ch := make(chan tgbotapi.Update, b.api.Buffer)
		mux.HandleFunc("/bot", func(w http.ResponseWriter, r *http.Request) {
			update, err := b.api.HandleUpdate(r)
			if err != nil {
				log.Printf("Bad webhook update: %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			ch <- *update
		})
		updates = ch
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Printf("Failed to delete webhook: %v", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		defer b.api.StopReceivingUpdates()
		log.Println("Long polling for updates")
	}

	b.server = &http.Server{
		Addr:    ":" + b.cfg.ServerPort,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting HTTP server on :%s", b.cfg.ServerPort)
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editMessage(chatID int64, msgID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = "HTML"
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Error editing message: %v", err)
	}
}
