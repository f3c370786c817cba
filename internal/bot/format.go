package bot

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/scheduler"
)

// sortTimes orders class times by their position in a week starting at first.
func sortTimes(times []*domain.ClassTime, first time.Weekday) {
	pos := make(map[domain.DayIndex]int, domain.DaysPerWeek)
	for i, d := range domain.WeekOrder(first) {
		pos[d] = i
	}
	sort.SliceStable(times, func(i, j int) bool {
		if pos[times[i].Day] != pos[times[j].Day] {
			return pos[times[i].Day] < pos[times[j].Day]
		}
		return times[i].At.Minutes() < times[j].At.Minutes()
	})
}

func formatSubject(s *domain.Subject, first time.Weekday) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 <b>%s</b> <code>%s</code>\n", html.EscapeString(s.Name), shortID(s.ID))
	sortTimes(s.Times, first)
	for _, ct := range s.Times {
		fmt.Fprintf(&sb, "   • %s <code>%s</code>\n", ct.Label(), shortID(ct.ID))
	}
	return sb.String()
}

func formatSubjects(subjects []*domain.Subject, first time.Weekday) string {
	if len(subjects) == 0 {
		return "No classes yet. Add one with /addclass"
	}
	var sb strings.Builder
	sb.WriteString("<b>Classes</b>\n\n")
	for _, s := range subjects {
		sb.WriteString(formatSubject(s, first))
	}
	return sb.String()
}

func formatTask(t *domain.Task, now time.Time, loc *time.Location) string {
	line := fmt.Sprintf("%s <b>%s</b> <code>%s</code>\n   due %s",
		t.StatusEmoji(), html.EscapeString(t.Title), shortID(t.ID), t.Due.In(loc).Format("Mon 02 Jan 15:04"))
	if !t.IsDone() {
		line += " · " + t.Remaining(now)
	}
	return line
}

func formatTasks(tasks []*domain.Task, now time.Time, loc *time.Location) string {
	if len(tasks) == 0 {
		return "No tasks. Add one with /addtask"
	}
	var sb strings.Builder
	sb.WriteString("<b>Tasks</b>\n\n")
	for _, t := range tasks {
		sb.WriteString(formatTask(t, now, loc))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatPending(pending []scheduler.PendingTrigger, loc *time.Location) string {
	if len(pending) == 0 {
		return "No reminders scheduled."
	}
	var sb strings.Builder
	sb.WriteString("<b>Upcoming reminders</b>\n\n")
	for _, p := range pending {
		repeat := ""
		if p.Spec.Repeats {
			repeat = " 🔁"
		}
		fmt.Fprintf(&sb, "%s · <b>%s</b>: %s%s\n",
			p.Next.In(loc).Format("Mon 02 Jan 15:04"),
			html.EscapeString(p.Spec.Title), html.EscapeString(p.Spec.Body), repeat)
	}
	return sb.String()
}

// errorText is the reply for a failed command.
func errorText(err error) string {
	return fmt.Sprintf("❌ %s\n<i>%s</i>", html.EscapeString(err.Error()), domain.RecoverySuggestion(err))
}
