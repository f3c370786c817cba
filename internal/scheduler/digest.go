package scheduler

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tazhate/classbot/internal/domain"
)

// DigestSource supplies the morning digest.
type DigestSource interface {
	ListSubjectsByDay(day domain.DayIndex) ([]*domain.Subject, error)
	ListTasksDueBetween(from, to time.Time) ([]*domain.Task, error)
}

// StartDigest sends a summary of today's classes and of tasks due within a
// day, every morning at at.
func (c *Center) StartDigest(at domain.TimeOfDay, src DigestSource) error {
	spec := fmt.Sprintf("%d %d * * *", at.Minute, at.Hour)
	if _, err := c.cron.AddFunc(spec, func() { c.sendDigest(src) }); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}
	return nil
}

func (c *Center) sendDigest(src DigestSource) {
	c.mu.Lock()
	sender, chatID := c.sender, c.chatID
	c.mu.Unlock()
	if sender == nil {
		return
	}

	text, err := BuildDigest(c.now().In(c.location), src)
	if err != nil {
		log.Printf("Error building morning digest: %v", err)
		return
	}
	if err := sender.SendMessage(chatID, text); err != nil {
		log.Printf("Error sending morning digest: %v", err)
	}
}

// BuildDigest renders the morning summary for now.
func BuildDigest(now time.Time, src DigestSource) (string, error) {
	today := domain.TodayIndex(now)
	subjects, err := src.ListSubjectsByDay(today)
	if err != nil {
		return "", fmt.Errorf("list today's classes: %w", err)
	}
	tasks, err := src.ListTasksDueBetween(now, now.Add(24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("list tasks due: %w", err)
	}

	var sb strings.Builder
	dayName, _ := domain.DayName(today)
	sb.WriteString(fmt.Sprintf("☀️ <b>Good morning! %s</b>\n\n", dayName))

	if len(subjects) == 0 {
		sb.WriteString("No classes today.\n")
	} else {
		sb.WriteString("<b>Classes:</b>\n")
		for _, s := range subjects {
			for _, ct := range s.Times {
				sb.WriteString(fmt.Sprintf("• %s %s\n", ct.At, s.Name))
			}
		}
	}

	if len(tasks) > 0 {
		sb.WriteString("\n<b>Due within 24 hours:</b>\n")
		for _, t := range tasks {
			sb.WriteString(fmt.Sprintf("• %s — %s\n", t.Title, t.Remaining(now)))
		}
	}
	return sb.String(), nil
}
