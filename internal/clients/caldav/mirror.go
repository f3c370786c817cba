package caldav

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/recur"
)

// EventPutter is the part of Client the mirror needs.
type EventPutter interface {
	PutEvent(ctx context.Context, calendarPath string, event *Event) error
	DeleteEvent(ctx context.Context, calendarPath, eventUID string) error
}

// Mirror copies reminders into a CalDAV calendar, one event per reminder
// identifier, so they also show up on a phone's calendar. It implements
// notify.Port.
type Mirror struct {
	client       EventPutter
	calendarPath string
	location     *time.Location
	now          func() time.Time
}

func NewMirror(client EventPutter, calendarPath string, location *time.Location) *Mirror {
	return &Mirror{
		client:       client,
		calendarPath: calendarPath,
		location:     location,
		now:          time.Now,
	}
}

func (m *Mirror) Schedule(ctx context.Context, spec domain.ReminderSpec) error {
	event, err := m.reminderEvent(spec)
	if err != nil {
		return err
	}
	return m.client.PutEvent(ctx, m.calendarPath, event)
}

func (m *Mirror) Cancel(ctx context.Context, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := m.client.DeleteEvent(ctx, m.calendarPath, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// reminderEvent turns a reminder into a short event at its fire time with a
// display alarm at start. Weekly reminders start at their next occurrence
// and repeat with a weekly RRULE.
func (m *Mirror) reminderEvent(spec domain.ReminderSpec) (*Event, error) {
	event := &Event{
		UID:          spec.Identifier,
		Summary:      spec.Title,
		Description:  spec.Body,
		AlarmAtStart: true,
	}

	if !spec.Trigger.IsWeekly() {
		event.StartTime = spec.Trigger.At
		event.EndTime = spec.Trigger.At.Add(5 * time.Minute)
		return event, nil
	}

	start, ok := recur.NextFire(spec.Trigger, m.now(), m.location)
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", spec.Identifier, domain.ErrInvalidWeekday)
	}
	event.StartTime = start
	event.EndTime = start.Add(5 * time.Minute)
	// BYDAY is taken from the UTC start, which is what DTSTART carries
	event.Rule = &rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{recur.RRuleDay(domain.IndexOf(start.UTC().Weekday()))},
	}
	return event, nil
}
