// Package rules computes which reminders should exist for subjects and tasks.
// Everything here is pure: no clock, no I/O.
package rules

import (
	"fmt"
	"time"

	"github.com/tazhate/classbot/internal/domain"
)

const (
	DefaultClassLead = 20 * time.Minute
	minutesPerWeek   = domain.DaysPerWeek * domain.MinutesPerDay
)

var (
	DefaultDayBeforeAt = domain.TimeOfDay{Hour: 20, Minute: 0}
	DefaultTaskOffsets = []time.Duration{24 * time.Hour, 12 * time.Hour, 6 * time.Hour, 3 * time.Hour}
)

// Engine holds the reminder horizons.
type Engine struct {
	// ClassLead is how long before each class the first reminder fires.
	ClassLead time.Duration
	// DayBeforeAt is the fixed time of the reminder on the previous day.
	DayBeforeAt domain.TimeOfDay
	// TaskOffsets are the horizons before a task's due time, whole hours.
	TaskOffsets []time.Duration
}

// Default returns the engine with the stock horizons: 20 minutes and the day
// before at 20:00 for classes, 24/12/6/3 hours for tasks.
func Default() *Engine {
	return &Engine{
		ClassLead:   DefaultClassLead,
		DayBeforeAt: DefaultDayBeforeAt,
		TaskOffsets: append([]time.Duration(nil), DefaultTaskOffsets...),
	}
}

// Validate rejects horizons that could not produce a usable identifier.
func (e *Engine) Validate() error {
	if e.ClassLead <= 0 || e.ClassLead%time.Minute != 0 || e.ClassLead >= 7*24*time.Hour {
		return fmt.Errorf("class lead %s must be a positive whole number of minutes under a week", e.ClassLead)
	}
	if !e.DayBeforeAt.Valid() {
		return fmt.Errorf("day-before time: %w", domain.ErrInvalidTime)
	}
	if len(e.TaskOffsets) == 0 {
		return fmt.Errorf("at least one task offset is required")
	}
	seen := make(map[time.Duration]bool, len(e.TaskOffsets))
	for _, off := range e.TaskOffsets {
		if off <= 0 || off%time.Hour != 0 {
			return fmt.Errorf("task offset %s must be a positive whole number of hours", off)
		}
		if seen[off] {
			return fmt.Errorf("duplicate task offset %s", off)
		}
		seen[off] = true
	}
	return nil
}

func (e *Engine) leadHorizon() domain.Horizon {
	return domain.MinutesHorizon(e.ClassLead)
}

// ClassReminders returns the two weekly reminders of one class time: ClassLead
// before the class, and the previous day at DayBeforeAt.
func (e *Engine) ClassReminders(subjectName string, ct *domain.ClassTime) ([]domain.ReminderSpec, error) {
	if err := ct.Validate(); err != nil {
		return nil, err
	}

	lead := int(e.ClassLead / time.Minute)
	day, at := shiftBack(ct.Day, ct.At, lead)

	return []domain.ReminderSpec{
		{
			Identifier: domain.ReminderID(ct.ID, e.leadHorizon()),
			OwnerID:    ct.ID,
			Trigger:    domain.Trigger{Weekday: day, Time: at},
			Repeats:    true,
			Title:      subjectName,
			Body:       fmt.Sprintf("Before %d min", lead),
		},
		{
			Identifier: domain.ReminderID(ct.ID, domain.Horizon1Day),
			OwnerID:    ct.ID,
			Trigger:    domain.Trigger{Weekday: ct.Day.Prev(), Time: e.DayBeforeAt},
			Repeats:    true,
			Title:      subjectName,
			Body:       "Tomorrow at " + ct.At.String(),
		},
	}, nil
}

// SubjectReminders concatenates ClassReminders over all of the subject's times.
func (e *Engine) SubjectReminders(s *domain.Subject) ([]domain.ReminderSpec, error) {
	specs := make([]domain.ReminderSpec, 0, 2*len(s.Times))
	for _, ct := range s.Times {
		cs, err := e.ClassReminders(s.Name, ct)
		if err != nil {
			return nil, fmt.Errorf("subject %q: %w", s.Name, err)
		}
		specs = append(specs, cs...)
	}
	return specs, nil
}

// TaskReminders returns one non-repeating reminder per task offset. Reminders
// whose fire time has already passed are still returned; dropping them is up
// to whoever delivers notifications.
func (e *Engine) TaskReminders(t *domain.Task) ([]domain.ReminderSpec, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	specs := make([]domain.ReminderSpec, 0, len(e.TaskOffsets))
	for _, off := range e.TaskOffsets {
		hours := int(off / time.Hour)
		specs = append(specs, domain.ReminderSpec{
			Identifier: domain.ReminderID(t.ID, domain.HoursHorizon(off)),
			OwnerID:    t.ID,
			Trigger:    domain.Trigger{At: t.Due.Add(-off)},
			Repeats:    false,
			Title:      "Reminder",
			Body:       fmt.Sprintf("You have %d hours to complete '%s'", hours, t.Title),
		})
	}
	return specs, nil
}

// ClassIdentifiers lists every identifier a class time can own, including the
// stock horizons so a changed ClassLead does not orphan old reminders.
func (e *Engine) ClassIdentifiers(ownerID string) []string {
	horizons := append([]domain.Horizon{e.leadHorizon()}, domain.ClassHorizons...)
	return identifiers(ownerID, horizons)
}

// TaskIdentifiers lists every identifier a task can own.
func (e *Engine) TaskIdentifiers(ownerID string) []string {
	horizons := make([]domain.Horizon, 0, len(e.TaskOffsets)+len(domain.TaskHorizons))
	for _, off := range e.TaskOffsets {
		horizons = append(horizons, domain.HoursHorizon(off))
	}
	horizons = append(horizons, domain.TaskHorizons...)
	return identifiers(ownerID, horizons)
}

// Identifiers lists both families for ownerID, for exhaustive cancellation
// when the owner's kind is unknown.
func (e *Engine) Identifiers(ownerID string) []string {
	return dedupe(append(e.ClassIdentifiers(ownerID), e.TaskIdentifiers(ownerID)...))
}

func identifiers(ownerID string, horizons []domain.Horizon) []string {
	ids := make([]string, 0, len(horizons))
	for _, h := range horizons {
		ids = append(ids, domain.ReminderID(ownerID, h))
	}
	return dedupe(ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// shiftBack moves a weekly (day, time) point back by minutes, working modulo
// one week so that crossing midnight also rolls the weekday.
func shiftBack(day domain.DayIndex, at domain.TimeOfDay, minutes int) (domain.DayIndex, domain.TimeOfDay) {
	pos := (int(day)-1)*domain.MinutesPerDay + at.Minutes() - minutes
	pos %= minutesPerWeek
	if pos < 0 {
		pos += minutesPerWeek
	}
	return domain.DayIndex(pos/domain.MinutesPerDay + 1), domain.FromMinutes(pos % domain.MinutesPerDay)
}
