package bot

import (
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(msg.From.ID) {
		b.SendMessage(chatID, "⛔ Access denied")
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	b.SendMessage(chatID, "Send a command. /help lists them")
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	if !b.cfg.IsAllowedUser(callback.From.ID) {
		b.answer(callback.ID, "⛔ Access denied")
		return
	}

	action, id, _ := strings.Cut(callback.Data, ":")

	switch action {
	case "done":
		task, err := b.tasks.ToggleCompleted(id)
		if err != nil {
			b.answer(callback.ID, "❌ "+err.Error())
			return
		}
		if task.IsDone() {
			b.answer(callback.ID, "✅ Done")
		} else {
			b.answer(callback.ID, "↩️ Reopened")
		}
		b.refreshTaskList(chatID, msgID)

	case "del":
		if _, err := b.tasks.Delete(id); err != nil {
			b.answer(callback.ID, "❌ "+err.Error())
			return
		}
		b.answer(callback.ID, "🗑 Deleted")
		b.refreshTaskList(chatID, msgID)

	case "delclass":
		subj, err := b.subjects.Delete(id)
		if err != nil {
			b.answer(callback.ID, "❌ "+err.Error())
			return
		}
		b.answer(callback.ID, "🗑 Deleted")
		b.editMessage(chatID, msgID, "🗑 Deleted <b>"+html.EscapeString(subj.Name)+"</b> and its reminders", nil)

	case "cancel":
		b.answer(callback.ID, "")
		b.editMessage(chatID, msgID, "Cancelled", nil)

	default:
		b.answer(callback.ID, "")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
}

func (b *Bot) refreshTaskList(chatID int64, msgID int) {
	tasks, err := b.tasks.List(false)
	if err != nil {
		log.Printf("Error listing tasks: %v", err)
		return
	}
	b.editMessage(chatID, msgID, formatTasks(tasks, b.now(), b.cfg.Timezone), taskListKeyboard(tasks))
}
