package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tazhate/classbot/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSubject() *domain.Subject {
	return &domain.Subject{
		ID:   "subj-1",
		Name: "Physics",
		Times: []*domain.ClassTime{
			{ID: "ct-1", Day: domain.Monday, At: domain.TimeOfDay{Hour: 9}},
			{ID: "ct-2", Day: domain.Thursday, At: domain.TimeOfDay{Hour: 14, Minute: 30}},
		},
	}
}

func TestSubjectCRUD(t *testing.T) {
	s := newTestStorage(t)

	subj := testSubject()
	if err := s.CreateSubject(subj); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetSubject("subj-1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Name != "Physics" || len(got.Times) != 2 {
		t.Fatalf("unexpected subject %+v", got)
	}
	if got.Times[1].Day != domain.Thursday || got.Times[1].At != (domain.TimeOfDay{Hour: 14, Minute: 30}) {
		t.Errorf("unexpected class time %+v", got.Times[1])
	}
	if got.Times[0].SubjectID != "subj-1" {
		t.Errorf("class time subject = %q", got.Times[0].SubjectID)
	}

	got.Name = "Advanced Physics"
	got.Times = []*domain.ClassTime{{ID: "ct-3", Day: domain.Friday, At: domain.TimeOfDay{Hour: 8}}}
	if err := s.UpdateSubject(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetSubject("subj-1")
	if got.Name != "Advanced Physics" || len(got.Times) != 1 || got.Times[0].ID != "ct-3" {
		t.Errorf("after update: %+v", got)
	}

	if err := s.DeleteSubject("subj-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetSubject("subj-1"); got != nil {
		t.Error("subject still present after delete")
	}
	if ct, _ := s.GetClassTime("ct-3"); ct != nil {
		t.Error("class time should cascade with its subject")
	}
}

func TestUpdateSubject_NotFound(t *testing.T) {
	s := newTestStorage(t)
	err := s.UpdateSubject(&domain.Subject{ID: "missing", Name: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClassTimes(t *testing.T) {
	s := newTestStorage(t)
	if err := s.CreateSubject(testSubject()); err != nil {
		t.Fatalf("create: %v", err)
	}

	extra := &domain.ClassTime{ID: "ct-9", SubjectID: "subj-1", Day: domain.Monday, At: domain.TimeOfDay{Hour: 7}}
	if err := s.AddClassTime(extra); err != nil {
		t.Fatalf("add: %v", err)
	}

	monday, err := s.ListSubjectsByDay(domain.Monday)
	if err != nil {
		t.Fatalf("by day: %v", err)
	}
	if len(monday) != 1 || len(monday[0].Times) != 2 {
		t.Fatalf("monday = %+v", monday)
	}
	if monday[0].Times[0].ID != "ct-9" {
		t.Errorf("times should be ordered by time, got %s first", monday[0].Times[0].ID)
	}

	if err := s.DeleteClassTime("ct-9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ct, _ := s.GetClassTime("ct-9"); ct != nil {
		t.Error("class time still present")
	}

	if err := s.AddClassTime(&domain.ClassTime{ID: "bad", SubjectID: "subj-1", Day: 8}); err == nil {
		t.Error("expected CHECK constraint to reject day 8")
	}
}

func TestTasks(t *testing.T) {
	s := newTestStorage(t)
	loc := time.FixedZone("UTC+3", 3*3600)
	due := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)

	task := &domain.Task{ID: "t-1", Title: "Essay", Due: due}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("create: %v", err)
	}
	later := &domain.Task{ID: "t-2", Title: "Lab report", Due: due.Add(48 * time.Hour), SubjectID: "subj-1"}
	if err := s.CreateTask(later); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetTask("t-1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if !got.Due.Equal(due) {
		t.Errorf("due = %s, want %s", got.Due, due)
	}
	if got.IsDone() {
		t.Error("new task should not be done")
	}

	window, err := s.ListTasksDueBetween(due.Add(-time.Hour), due.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("due between: %v", err)
	}
	if len(window) != 1 || window[0].ID != "t-1" {
		t.Errorf("window = %+v", window)
	}

	got.ToggleCompleted(time.Now())
	if err := s.UpdateTask(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	open, _ := s.ListTasks(false)
	if len(open) != 1 || open[0].ID != "t-2" {
		t.Errorf("open tasks = %+v", open)
	}
	all, _ := s.ListTasks(true)
	if len(all) != 2 || all[0].ID != "t-1" {
		t.Errorf("all tasks = %+v", all)
	}

	bySubject, _ := s.ListTasksBySubject("subj-1")
	if len(bySubject) != 1 || bySubject[0].ID != "t-2" {
		t.Errorf("by subject = %+v", bySubject)
	}

	if err := s.DeleteTask("t-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetTask("t-1"); got != nil {
		t.Error("task still present")
	}
	if err := s.UpdateTask(&domain.Task{ID: "t-1", Title: "x", Due: due}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTriggers(t *testing.T) {
	s := newTestStorage(t)

	weekly := &domain.ReminderSpec{
		Identifier: "ct-1_1day",
		OwnerID:    "ct-1",
		Trigger:    domain.Trigger{Weekday: domain.Saturday, Time: domain.TimeOfDay{Hour: 20}},
		Repeats:    true,
		Title:      "Physics",
		Body:       "Tomorrow at 09:00",
	}
	at := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)
	once := &domain.ReminderSpec{
		Identifier: "t-1_24hour",
		OwnerID:    "t-1",
		Trigger:    domain.Trigger{At: at},
		Title:      "Reminder",
	}

	for _, spec := range []*domain.ReminderSpec{weekly, once} {
		if err := s.SaveTrigger(spec); err != nil {
			t.Fatalf("save %s: %v", spec.Identifier, err)
		}
	}
	weekly.Body = "changed"
	if err := s.SaveTrigger(weekly); err != nil {
		t.Fatalf("replace: %v", err)
	}

	list, err := s.ListTriggers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(list))
	}
	w, o := list[0], list[1]
	if w.Identifier != "ct-1_1day" || !w.Repeats || w.Trigger.Weekday != domain.Saturday || w.Body != "changed" {
		t.Errorf("weekly trigger = %+v", w)
	}
	if !w.Trigger.At.IsZero() {
		t.Error("weekly trigger should have no fire_at")
	}
	if o.Repeats || o.Trigger.IsWeekly() || !o.Trigger.At.Equal(at) {
		t.Errorf("one-off trigger = %+v", o)
	}

	if err := s.DeleteTriggers([]string{"ct-1_1day", "unknown"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = s.ListTriggers()
	if len(list) != 1 || list[0].Identifier != "t-1_24hour" {
		t.Errorf("after delete: %+v", list)
	}
}
