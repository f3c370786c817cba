package service

import (
	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/rules"
)

// ReminderScheduler is the part of notify.Scheduler the hooks drive.
type ReminderScheduler interface {
	Install(ownerID string, specs []domain.ReminderSpec)
	Cancel(ownerID string, ids []string)
	CancelAll(ownerID string)
}

// Hooks turn subject and task changes into reminder installs and
// cancellations. Rule errors are returned; delivery errors are reported by
// the scheduler and never reach the caller.
type Hooks struct {
	engine          *rules.Engine
	scheduler       ReminderScheduler
	completeCancels bool
}

func NewHooks(engine *rules.Engine, scheduler ReminderScheduler, completeCancels bool) *Hooks {
	return &Hooks{
		engine:          engine,
		scheduler:       scheduler,
		completeCancels: completeCancels,
	}
}

// SubjectSaved installs the reminders of every class time of s, after
// cancelling those of the times removed by the edit.
func (h *Hooks) SubjectSaved(s *domain.Subject, removedTimeIDs []string) error {
	perTime := make([][]domain.ReminderSpec, 0, len(s.Times))
	for _, ct := range s.Times {
		specs, err := h.engine.ClassReminders(s.Name, ct)
		if err != nil {
			return err
		}
		perTime = append(perTime, specs)
	}

	h.ClassTimesRemoved(removedTimeIDs)
	for i, ct := range s.Times {
		h.scheduler.Install(ct.ID, perTime[i])
	}
	return nil
}

// ClassTimesRemoved cancels the class reminders of each time id.
func (h *Hooks) ClassTimesRemoved(ids []string) {
	for _, id := range ids {
		h.scheduler.Cancel(id, h.engine.ClassIdentifiers(id))
	}
}

func (h *Hooks) SubjectDeleted(s *domain.Subject) {
	h.ClassTimesRemoved(s.TimeIDs())
}

// TaskSaved supersedes the task's reminders. A completed task keeps none
// when completion cancels reminders.
func (h *Hooks) TaskSaved(t *domain.Task) error {
	if t.IsDone() && h.completeCancels {
		if err := t.Validate(); err != nil {
			return err
		}
		h.scheduler.CancelAll(t.ID)
		return nil
	}

	specs, err := h.engine.TaskReminders(t)
	if err != nil {
		return err
	}
	h.scheduler.Install(t.ID, specs)
	return nil
}

func (h *Hooks) TaskDeleted(id string) {
	h.scheduler.CancelAll(id)
}

// TaskCompleted is called after the completion state flipped either way.
func (h *Hooks) TaskCompleted(t *domain.Task) error {
	if !h.completeCancels {
		return nil
	}
	return h.TaskSaved(t)
}
