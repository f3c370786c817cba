package domain

import (
	"fmt"
	"strings"
	"time"
)

// Task is a one-off to-do item with an absolute deadline.
type Task struct {
	ID          string
	SubjectID   string // optional
	Title       string
	Due         time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

func (t *Task) IsDone() bool {
	return t.CompletedAt != nil
}

// Validate checks the fields the reminder rules depend on.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: task without id", ErrInvalidTask)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title cannot be empty", ErrInvalidTask)
	}
	if t.Due.IsZero() {
		return fmt.Errorf("%w: task %s has no due date", ErrInvalidTask, t.ID)
	}
	return nil
}

// ToggleCompleted flips the completion state.
func (t *Task) ToggleCompleted(now time.Time) {
	if t.CompletedAt != nil {
		t.CompletedAt = nil
		return
	}
	t.CompletedAt = &now
}

func (t *Task) StatusEmoji() string {
	if t.IsDone() {
		return "✅"
	}
	return "⬜"
}

// Remaining renders the countdown to the due date using the two largest
// calendar units, e.g. "2 Days, 5 Hours".
func (t *Task) Remaining(now time.Time) string {
	due := t.Due.In(now.Location())
	if !due.After(now) {
		return "Due time passed!"
	}

	years, months, days, hours, minutes, seconds := calendarDiff(now, due)
	switch {
	case years > 0:
		return fmt.Sprintf("%d Years", years)
	case months > 0:
		return fmt.Sprintf("%d Months, %d Days", months, days)
	case days > 0:
		return fmt.Sprintf("%d Days, %d Hours", days, hours)
	case hours > 0:
		return fmt.Sprintf("%d Hours, %d Minutes", hours, minutes)
	}
	return fmt.Sprintf("%d Minutes, %d Seconds", minutes, seconds)
}

// calendarDiff splits the interval from a to b (a before b) into calendar
// components, borrowing from the larger unit like a wall calendar does.
func calendarDiff(a, b time.Time) (years, months, days, hours, minutes, seconds int) {
	y1, M1, d1 := a.Date()
	y2, M2, d2 := b.Date()
	h1, m1, s1 := a.Clock()
	h2, m2, s2 := b.Clock()

	years = y2 - y1
	months = int(M2) - int(M1)
	days = d2 - d1
	hours = h2 - h1
	minutes = m2 - m1
	seconds = s2 - s1

	if seconds < 0 {
		seconds += 60
		minutes--
	}
	if minutes < 0 {
		minutes += 60
		hours--
	}
	if hours < 0 {
		hours += 24
		days--
	}
	if days < 0 {
		// days in the month preceding b's month
		days += time.Date(y2, M2, 0, 0, 0, 0, 0, b.Location()).Day()
		months--
	}
	if months < 0 {
		months += 12
		years--
	}
	return
}
