package bot

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(chatID)
	case "addclass":
		b.cmdAddClass(chatID, args)
	case "classes":
		b.cmdClasses(chatID)
	case "today":
		b.cmdToday(chatID)
	case "addtime":
		b.cmdAddTime(chatID, args)
	case "rmtime":
		b.cmdRemoveTime(chatID, args)
	case "delclass":
		b.cmdDeleteClass(chatID, args)
	case "addtask":
		b.cmdAddTask(chatID, args)
	case "tasks":
		b.cmdTasks(chatID, args)
	case "due":
		b.cmdDue(chatID, args)
	case "done":
		b.cmdDone(chatID, args)
	case "deltask":
		b.cmdDeleteTask(chatID, args)
	case "pending":
		b.cmdPending(chatID)
	default:
		b.SendMessage(chatID, "Unknown command. /help lists them")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := msg.From.FirstName
	b.SendMessage(msg.Chat.ID, fmt.Sprintf("👋 Hi, %s!\n\nI keep track of your weekly classes and tasks and remind you before they start.\n\n/help — command list", html.EscapeString(name)))
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

<b>Classes</b>
/addclass Physics Mon 09:00, Thu 14:30 — add a class
/classes — list classes
/today — today's classes
/addtime ID Wed 10:00 — add a weekly time
/rmtime ID — remove a weekly time
/delclass ID — delete a class

<b>Tasks</b>
/addtask 2025-03-10 08:00 Essay — add a task
/tasks [all] — list tasks
/due ID 2025-03-12 18:00 — change a due date
/done ID — mark done or reopen
/deltask ID — delete a task

<b>Reminders</b>
/pending — upcoming reminders

💡 IDs can be shortened to their first characters`

	b.SendMessage(chatID, text)
}

func (b *Bot) cmdAddClass(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Usage: /addclass Physics Mon 09:00, Thu 14:30")
		return
	}

	name, times, err := parseAddClass(args)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	subj, err := b.subjects.Create(name, times)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	b.SendMessage(chatID, "✅ Added\n\n"+formatSubject(subj, b.cfg.FirstWeekday))
}

func (b *Bot) cmdClasses(chatID int64) {
	subjects, err := b.subjects.List()
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	b.SendMessage(chatID, formatSubjects(subjects, b.cfg.FirstWeekday))
}

func (b *Bot) cmdToday(chatID int64) {
	subjects, err := b.subjects.ListForToday(b.now())
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	if len(subjects) == 0 {
		b.SendMessage(chatID, "🎉 No classes today")
		return
	}
	b.SendMessage(chatID, formatSubjects(subjects, b.cfg.FirstWeekday))
}

func (b *Bot) cmdAddTime(chatID int64, args string) {
	idArg, slot, ok := strings.Cut(args, " ")
	if !ok {
		b.SendMessage(chatID, "Usage: /addtime ID Wed 10:00")
		return
	}
	id, err := b.resolveSubjectID(idArg)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	ct, err := parseSlot(slot)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	if _, err := b.subjects.AddTime(id, ct.Day, ct.At); err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	subj, err := b.subjects.Get(id)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	b.SendMessage(chatID, "✅ Time added\n\n"+formatSubject(subj, b.cfg.FirstWeekday))
}

func (b *Bot) cmdRemoveTime(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Usage: /rmtime ID (see /classes)")
		return
	}
	id, err := b.resolveClassTimeID(args)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	subj, err := b.subjects.RemoveTime(id)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	b.SendMessage(chatID, "🗑 Time removed\n\n"+formatSubject(subj, b.cfg.FirstWeekday))
}

func (b *Bot) cmdDeleteClass(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Usage: /delclass ID (see /classes)")
		return
	}
	id, err := b.resolveSubjectID(args)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	subj, err := b.subjects.Get(id)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	b.SendMessageWithKeyboard(chatID, "Delete this class and all its reminders?\n\n"+formatSubject(subj, b.cfg.FirstWeekday),
		confirmDeleteSubjectKeyboard(subj))
}

func (b *Bot) cmdAddTask(chatID int64, args string) {
	due, title, err := parseDue(args, b.cfg.Timezone)
	if err != nil || title == "" {
		b.SendMessage(chatID, "Usage: /addtask 2025-03-10 08:00 Essay")
		return
	}

	task, err := b.tasks.Create(title, due, "")
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	b.SendMessageWithKeyboard(chatID, "✅ Task added\n\n"+formatTask(task, b.now(), b.cfg.Timezone), taskKeyboard(task))
}

func (b *Bot) cmdTasks(chatID int64, args string) {
	includeDone := args == "all"
	tasks, err := b.tasks.List(includeDone)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	text := formatTasks(tasks, b.now(), b.cfg.Timezone)
	if kb := taskListKeyboard(tasks); kb != nil {
		b.SendMessageWithKeyboard(chatID, text, *kb)
		return
	}
	b.SendMessage(chatID, text)
}

func (b *Bot) cmdDue(chatID int64, args string) {
	idArg, rest, ok := strings.Cut(args, " ")
	if !ok {
		b.SendMessage(chatID, "Usage: /due ID 2025-03-12 18:00")
		return
	}
	id, err := b.resolveTaskID(idArg)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	due, _, err := parseDue(rest, b.cfg.Timezone)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	task, err := b.tasks.Edit(id, "", due)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	b.SendMessage(chatID, "📅 Due date changed, reminders rescheduled\n\n"+formatTask(task, b.now(), b.cfg.Timezone))
}

func (b *Bot) cmdDone(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Usage: /done ID")
		return
	}
	id, err := b.resolveTaskID(args)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	task, err := b.tasks.ToggleCompleted(id)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	b.SendMessage(chatID, formatTask(task, b.now(), b.cfg.Timezone))
}

func (b *Bot) cmdDeleteTask(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Usage: /deltask ID")
		return
	}
	id, err := b.resolveTaskID(args)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}

	task, err := b.tasks.Delete(id)
	if err != nil {
		b.SendMessage(chatID, errorText(err))
		return
	}
	b.SendMessage(chatID, "🗑 Deleted <b>"+html.EscapeString(task.Title)+"</b>")
}

func (b *Bot) cmdPending(chatID int64) {
	b.SendMessage(chatID, formatPending(b.pending.Pending(), b.cfg.Timezone))
}

func (b *Bot) resolveSubjectID(prefix string) (string, error) {
	subjects, err := b.subjects.List()
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(subjects))
	for _, s := range subjects {
		ids = append(ids, s.ID)
	}
	return matchID(prefix, ids)
}

func (b *Bot) resolveClassTimeID(prefix string) (string, error) {
	subjects, err := b.subjects.List()
	if err != nil {
		return "", err
	}
	var ids []string
	for _, s := range subjects {
		ids = append(ids, s.TimeIDs()...)
	}
	return matchID(prefix, ids)
}

func (b *Bot) resolveTaskID(prefix string) (string, error) {
	tasks, err := b.tasks.List(true)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return matchID(prefix, ids)
}

