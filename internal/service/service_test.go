package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/notify"
	"github.com/tazhate/classbot/internal/rules"
	"github.com/tazhate/classbot/internal/storage"
)

// countingPort records each port call in order.
type countingPort struct {
	mu        sync.Mutex
	calls     []string
	cancels   int
	schedules int
	active    map[string]domain.ReminderSpec
}

func newCountingPort() *countingPort {
	return &countingPort{active: make(map[string]domain.ReminderSpec)}
}

func (p *countingPort) Schedule(_ context.Context, spec domain.ReminderSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schedules++
	p.calls = append(p.calls, "schedule "+spec.Identifier)
	p.active[spec.Identifier] = spec
	return nil
}

func (p *countingPort) Cancel(_ context.Context, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
	for _, id := range ids {
		p.calls = append(p.calls, "cancel "+id)
		delete(p.active, id)
	}
	return nil
}

func (p *countingPort) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.cancels = 0
	p.schedules = 0
}

type fixture struct {
	store     *storage.Storage
	port      *countingPort
	scheduler *notify.Scheduler
	hooks     *Hooks
	subjects  *SubjectService
	tasks     *TaskService
}

func newFixture(t *testing.T, completeCancels bool) *fixture {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := rules.Default()
	port := newCountingPort()
	sched := notify.NewScheduler(port, engine)
	t.Cleanup(func() { sched.Close(context.Background()) })

	hooks := NewHooks(engine, sched, completeCancels)
	return &fixture{
		store:     store,
		port:      port,
		scheduler: sched,
		hooks:     hooks,
		subjects:  NewSubjectService(store, hooks, time.UTC),
		tasks:     NewTaskService(store, hooks),
	}
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.scheduler.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func twoTimes() []*domain.ClassTime {
	return []*domain.ClassTime{
		{Day: domain.Sunday, At: domain.TimeOfDay{Hour: 9}},
		{Day: domain.Wednesday, At: domain.TimeOfDay{Hour: 14, Minute: 10}},
	}
}

func TestSubjectCreate_InstallsClassReminders(t *testing.T) {
	f := newFixture(t, true)

	subj, err := f.subjects.Create("  Physics ", twoTimes())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.flush(t)

	if subj.Name != "Physics" || subj.Times[0].ID == "" {
		t.Errorf("subject = %+v", subj)
	}
	if f.port.schedules != 4 || len(f.port.active) != 4 {
		t.Fatalf("schedules = %d, active = %d, want 4", f.port.schedules, len(f.port.active))
	}

	sunday := subj.Times[0].ID
	dayBefore := f.port.active[sunday+"_1day"]
	if dayBefore.Trigger.Weekday != domain.Saturday || dayBefore.Trigger.Time.String() != "20:00" {
		t.Errorf("day-before trigger = %s", dayBefore.Trigger)
	}
	lead := f.port.active[sunday+"_20min"]
	if lead.Trigger.Weekday != domain.Sunday || lead.Trigger.Time.String() != "08:40" {
		t.Errorf("lead trigger = %s", lead.Trigger)
	}
}

func TestSubjectCreate_Invalid(t *testing.T) {
	f := newFixture(t, true)

	if _, err := f.subjects.Create("", twoTimes()); !errors.Is(err, domain.ErrInvalidSubject) {
		t.Errorf("empty name: %v", err)
	}
	if _, err := f.subjects.Create("Physics", nil); !errors.Is(err, domain.ErrInvalidSubject) {
		t.Errorf("no times: %v", err)
	}
	bad := []*domain.ClassTime{{Day: 0, At: domain.TimeOfDay{Hour: 9}}}
	if _, err := f.subjects.Create("Physics", bad); !errors.Is(err, domain.ErrInvalidWeekday) {
		t.Errorf("bad weekday: %v", err)
	}
	list, _ := f.subjects.List()
	if len(list) != 0 {
		t.Errorf("invalid subjects were stored: %+v", list)
	}
}

func TestSubjectDelete_CancelsEachTimeOnly(t *testing.T) {
	f := newFixture(t, true)
	subj, err := f.subjects.Create("Physics", twoTimes())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.flush(t)
	f.port.reset()

	if _, err := f.subjects.Delete(subj.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	f.flush(t)

	if f.port.cancels != 4 || f.port.schedules != 0 {
		t.Errorf("cancels = %d, schedules = %d, want 4 and 0", f.port.cancels, f.port.schedules)
	}
	if len(f.port.active) != 0 {
		t.Errorf("orphaned reminders: %v", f.port.active)
	}
}

func TestSubjectUpdate_CancelsRemovedTimes(t *testing.T) {
	f := newFixture(t, true)
	subj, _ := f.subjects.Create("Physics", twoTimes())
	f.flush(t)
	removed := subj.Times[1].ID

	subj.Times = []*domain.ClassTime{subj.Times[0], {Day: domain.Friday, At: domain.TimeOfDay{Hour: 11}}}
	if err := f.subjects.Update(subj); err != nil {
		t.Fatalf("update: %v", err)
	}
	f.flush(t)

	if _, ok := f.port.active[removed+"_20min"]; ok {
		t.Error("removed time still has reminders")
	}
	if len(f.port.active) != 4 {
		t.Errorf("active = %d, want 4", len(f.port.active))
	}

	if err := f.subjects.Update(&domain.Subject{ID: "missing", Name: "x", Times: twoTimes()}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update missing: %v", err)
	}
}

func TestSubjectAddAndRemoveTime(t *testing.T) {
	f := newFixture(t, true)
	subj, _ := f.subjects.Create("Physics", twoTimes()[:1])
	f.flush(t)

	if _, err := f.subjects.RemoveTime(subj.Times[0].ID); !errors.Is(err, domain.ErrInvalidSubject) {
		t.Errorf("removing the last time: %v", err)
	}

	ct, err := f.subjects.AddTime(subj.ID, domain.Tuesday, domain.TimeOfDay{Hour: 10, Minute: 5})
	if err != nil {
		t.Fatalf("add time: %v", err)
	}
	f.flush(t)
	if _, ok := f.port.active[ct.ID+"_20min"]; !ok {
		t.Error("new time has no lead reminder")
	}

	updated, err := f.subjects.RemoveTime(ct.ID)
	if err != nil {
		t.Fatalf("remove time: %v", err)
	}
	f.flush(t)
	if len(updated.Times) != 1 {
		t.Errorf("times = %d, want 1", len(updated.Times))
	}
	if len(f.port.active) != 2 {
		t.Errorf("active = %d, want 2", len(f.port.active))
	}

	if _, err := f.subjects.RemoveTime("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("remove missing: %v", err)
	}
}

func TestListForToday(t *testing.T) {
	f := newFixture(t, true)
	_, _ = f.subjects.Create("Physics", twoTimes())
	_, _ = f.subjects.Create("History", []*domain.ClassTime{{Day: domain.Monday, At: domain.TimeOfDay{Hour: 8}}})

	// 2025-03-09 is a Sunday.
	today, err := f.subjects.ListForToday(time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(today) != 1 || today[0].Name != "Physics" || len(today[0].Times) != 1 {
		t.Errorf("today = %+v", today)
	}
}

func TestTaskCreate_Scenario(t *testing.T) {
	f := newFixture(t, true)
	due := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	task, err := f.tasks.Create("Essay", due, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.flush(t)

	first := f.port.active[task.ID+"_24hour"]
	if !first.Trigger.At.Equal(time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("24h trigger = %s", first.Trigger.At)
	}
	last := f.port.active[task.ID+"_3hour"]
	if !last.Trigger.At.Equal(time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)) {
		t.Errorf("3h trigger = %s", last.Trigger.At)
	}
	if len(f.port.active) != 4 {
		t.Errorf("active = %d, want 4", len(f.port.active))
	}

	if _, err := f.tasks.Create("Lab", due, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown subject: %v", err)
	}
	if _, err := f.tasks.Create(" ", due, ""); !errors.Is(err, domain.ErrInvalidTask) {
		t.Errorf("empty title: %v", err)
	}
}

func TestTaskEdit_CancelsOldBeforeRegistering(t *testing.T) {
	f := newFixture(t, true)
	task, _ := f.tasks.Create("Essay", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), "")
	f.flush(t)
	f.port.reset()

	newDue := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)
	if _, err := f.tasks.Edit(task.ID, "", newDue); err != nil {
		t.Fatalf("edit: %v", err)
	}
	f.flush(t)

	if len(f.port.calls) != 8 {
		t.Fatalf("calls = %v", f.port.calls)
	}
	for i, call := range f.port.calls {
		wantPrefix := "cancel "
		if i >= 4 {
			wantPrefix = "schedule "
		}
		if len(call) < len(wantPrefix) || call[:len(wantPrefix)] != wantPrefix {
			t.Errorf("call %d = %q, want %s...", i, call, wantPrefix)
		}
	}
	if got := f.port.active[task.ID+"_3hour"].Trigger.At; !got.Equal(newDue.Add(-3 * time.Hour)) {
		t.Errorf("3h trigger = %s", got)
	}

	stored, _ := f.tasks.Get(task.ID)
	if stored.Title != "Essay" || !stored.Due.Equal(newDue) {
		t.Errorf("stored = %+v", stored)
	}
}

func TestTaskToggleAndDelete(t *testing.T) {
	f := newFixture(t, true)
	task, _ := f.tasks.Create("Essay", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), "")
	f.flush(t)

	done, err := f.tasks.ToggleCompleted(task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	f.flush(t)
	if !done.IsDone() || len(f.port.active) != 0 {
		t.Errorf("done = %v, active = %d", done.IsDone(), len(f.port.active))
	}

	reopened, _ := f.tasks.ToggleCompleted(task.ID)
	f.flush(t)
	if reopened.IsDone() || len(f.port.active) != 4 {
		t.Errorf("reopened done = %v, active = %d", reopened.IsDone(), len(f.port.active))
	}

	if _, err := f.tasks.Delete(task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	f.flush(t)
	if len(f.port.active) != 0 {
		t.Errorf("active after delete = %d", len(f.port.active))
	}
	if _, err := f.tasks.Delete(task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestTaskToggle_KeepsRemindersWhenConfigured(t *testing.T) {
	f := newFixture(t, false)
	task, _ := f.tasks.Create("Essay", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), "")
	f.flush(t)
	f.port.reset()

	if _, err := f.tasks.ToggleCompleted(task.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	f.flush(t)
	if len(f.port.calls) != 0 || len(f.port.active) != 4 {
		t.Errorf("calls = %v, active = %d", f.port.calls, len(f.port.active))
	}
}

func TestResync(t *testing.T) {
	f := newFixture(t, true)
	_, _ = f.subjects.Create("Physics", twoTimes())
	open, _ := f.tasks.Create("Essay", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), "")
	closed, _ := f.tasks.Create("Lab", time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC), "")
	_, _ = f.tasks.ToggleCompleted(closed.ID)
	f.flush(t)

	// Simulate a backend that lost everything.
	f.port.active = make(map[string]domain.ReminderSpec)

	if err := Resync(f.store, f.hooks); err != nil {
		t.Fatalf("resync: %v", err)
	}
	f.flush(t)

	if len(f.port.active) != 8 {
		t.Errorf("active = %d, want 8", len(f.port.active))
	}
	if _, ok := f.port.active[open.ID+"_24hour"]; !ok {
		t.Error("open task not resynced")
	}
	if _, ok := f.port.active[closed.ID+"_24hour"]; ok {
		t.Error("completed task should not be resynced")
	}
}
