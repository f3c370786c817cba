package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tazhate/classbot/internal/domain"
)

type memStore struct {
	mu    sync.Mutex
	specs map[string]domain.ReminderSpec
}

func newMemStore() *memStore {
	return &memStore{specs: make(map[string]domain.ReminderSpec)}
}

func (m *memStore) SaveTrigger(spec *domain.ReminderSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[spec.Identifier] = *spec
	return nil
}

func (m *memStore) DeleteTriggers(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.specs, id)
	}
	return nil
}

func (m *memStore) ListTriggers() ([]*domain.ReminderSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ReminderSpec
	for _, s := range m.specs {
		s := s
		out = append(out, &s)
	}
	return out, nil
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

// 2025-03-10 is a Monday.
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestCenter(t *testing.T) (*Center, *memStore, *fakeSender) {
	t.Helper()
	store := newMemStore()
	c := New(time.UTC, store)
	c.now = func() time.Time { return testNow }
	sender := &fakeSender{}
	c.SetSender(sender, 42)
	return c, store, sender
}

func weeklySpec(id string, day domain.DayIndex, h, m int) domain.ReminderSpec {
	return domain.ReminderSpec{
		Identifier: id,
		OwnerID:    strings.SplitN(id, "_", 2)[0],
		Trigger:    domain.Trigger{Weekday: day, Time: domain.TimeOfDay{Hour: h, Minute: m}},
		Repeats:    true,
		Title:      "Physics",
		Body:       "Before 20 min",
	}
}

func onceSpec(id string, at time.Time) domain.ReminderSpec {
	return domain.ReminderSpec{
		Identifier: id,
		OwnerID:    strings.SplitN(id, "_", 2)[0],
		Trigger:    domain.Trigger{At: at},
		Title:      "Reminder",
		Body:       "You have 3 hours to complete 'Essay'",
	}
}

func TestSchedule_WithoutRecipientIsDenied(t *testing.T) {
	c := New(time.UTC, newMemStore())
	err := c.Schedule(context.Background(), weeklySpec("a_20min", domain.Monday, 8, 40))
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSchedule_ReplacesSameIdentifier(t *testing.T) {
	c, store, _ := newTestCenter(t)
	ctx := context.Background()

	if err := c.Schedule(ctx, weeklySpec("a_20min", domain.Monday, 8, 40)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := c.Schedule(ctx, weeklySpec("a_20min", domain.Tuesday, 9, 0)); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	if n := len(c.cron.Entries()); n != 1 {
		t.Errorf("cron entries = %d, want 1", n)
	}
	if got := c.entries["a_20min"].spec.Trigger.Weekday; got != domain.Tuesday {
		t.Errorf("weekday = %d, want Tuesday", got)
	}
	if len(store.specs) != 1 {
		t.Errorf("stored = %d, want 1", len(store.specs))
	}
}

func TestSchedule_PastOneOffIsDropped(t *testing.T) {
	c, store, _ := newTestCenter(t)
	err := c.Schedule(context.Background(), onceSpec("t_24hour", testNow.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(c.entries) != 0 || len(store.specs) != 0 {
		t.Error("past trigger should not be kept")
	}
}

func TestCancel(t *testing.T) {
	c, store, _ := newTestCenter(t)
	ctx := context.Background()
	_ = c.Schedule(ctx, weeklySpec("a_1day", domain.Sunday, 20, 0))
	_ = c.Schedule(ctx, onceSpec("t_3hour", testNow.Add(time.Hour)))

	if err := c.Cancel(ctx, []string{"a_1day", "unknown_20min"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := c.entries["a_1day"]; ok {
		t.Error("a_1day still pending")
	}
	if _, ok := store.specs["a_1day"]; ok {
		t.Error("a_1day still stored")
	}
	if len(c.cron.Entries()) != 1 {
		t.Errorf("cron entries = %d, want 1", len(c.cron.Entries()))
	}
}

func TestFire(t *testing.T) {
	c, store, sender := newTestCenter(t)
	ctx := context.Background()
	_ = c.Schedule(ctx, weeklySpec("a_20min", domain.Monday, 8, 40))
	_ = c.Schedule(ctx, onceSpec("t_3hour", testNow.Add(time.Hour)))

	c.fire("t_3hour")
	c.fire("a_20min")
	c.fire("missing")

	if len(sender.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(sender.messages))
	}
	if !strings.Contains(sender.messages[0], "You have 3 hours to complete 'Essay'") {
		t.Errorf("message = %q", sender.messages[0])
	}
	if _, ok := c.entries["t_3hour"]; ok {
		t.Error("one-off trigger should be removed after firing")
	}
	if _, ok := store.specs["t_3hour"]; ok {
		t.Error("one-off trigger should be deleted from the store after firing")
	}
	if _, ok := c.entries["a_20min"]; !ok {
		t.Error("weekly trigger should stay after firing")
	}
}

func TestRestore(t *testing.T) {
	store := newMemStore()
	_ = store.SaveTrigger(ptr(weeklySpec("a_1day", domain.Saturday, 20, 0)))
	_ = store.SaveTrigger(ptr(onceSpec("t_24hour", testNow.Add(-time.Minute))))
	_ = store.SaveTrigger(ptr(onceSpec("t_3hour", testNow.Add(time.Hour))))
	bad := weeklySpec("b_20min", 9, 8, 0)
	_ = store.SaveTrigger(&bad)

	c := New(time.UTC, store)
	c.now = func() time.Time { return testNow }
	if err := c.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if len(c.entries) != 2 {
		t.Errorf("entries = %d, want 2", len(c.entries))
	}
	if _, ok := store.specs["t_24hour"]; ok {
		t.Error("past trigger should be purged on restore")
	}
	if _, ok := store.specs["b_20min"]; ok {
		t.Error("invalid trigger should be purged on restore")
	}
}

func TestPending(t *testing.T) {
	c, _, _ := newTestCenter(t)
	ctx := context.Background()
	_ = c.Schedule(ctx, weeklySpec("a_1day", domain.Saturday, 20, 0))
	_ = c.Schedule(ctx, onceSpec("t_3hour", testNow.Add(3*time.Hour)))

	pending := c.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].Spec.Identifier != "t_3hour" {
		t.Errorf("first pending = %s", pending[0].Spec.Identifier)
	}
	want := time.Date(2025, 3, 15, 20, 0, 0, 0, time.UTC)
	if !pending[1].Next.Equal(want) {
		t.Errorf("weekly next = %s, want %s", pending[1].Next, want)
	}
}

type digestSource struct {
	subjects []*domain.Subject
	tasks    []*domain.Task
	day      domain.DayIndex
}

func (d *digestSource) ListSubjectsByDay(day domain.DayIndex) ([]*domain.Subject, error) {
	d.day = day
	return d.subjects, nil
}

func (d *digestSource) ListTasksDueBetween(from, to time.Time) ([]*domain.Task, error) {
	return d.tasks, nil
}

func TestBuildDigest(t *testing.T) {
	src := &digestSource{
		subjects: []*domain.Subject{{
			Name:  "Physics",
			Times: []*domain.ClassTime{{ID: "ct", Day: domain.Monday, At: domain.TimeOfDay{Hour: 9}}},
		}},
		tasks: []*domain.Task{{ID: "t", Title: "Essay", Due: testNow.Add(5 * time.Hour)}},
	}

	text, err := BuildDigest(testNow, src)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if src.day != domain.Monday {
		t.Errorf("queried day %d, want Monday", src.day)
	}
	for _, want := range []string{"Monday", "09:00 Physics", "Essay", "5 Hours, 0 Minutes"} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}

	empty, _ := BuildDigest(testNow, &digestSource{})
	if !strings.Contains(empty, "No classes today") {
		t.Errorf("empty digest = %q", empty)
	}
}

func ptr(s domain.ReminderSpec) *domain.ReminderSpec {
	return &s
}
