package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/classbot/internal/domain"
)

// Task action keyboard (for single task)
func taskKeyboard(task *domain.Task) tgbotapi.InlineKeyboardMarkup {
	doneLabel := "✅ Done"
	if task.IsDone() {
		doneLabel = "↩️ Reopen"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(doneLabel, "done:"+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", "del:"+task.ID),
		),
	)
}

// One row per open task.
func taskListKeyboard(tasks []*domain.Task) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range tasks {
		if t.IsDone() {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+truncate(t.Title, 25), "done:"+t.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", "del:"+t.ID),
		))
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func confirmDeleteSubjectKeyboard(subject *domain.Subject) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Delete %s", truncate(subject.Name, 20)), "delclass:"+subject.ID),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "cancel"),
		),
	)
}
