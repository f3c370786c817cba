// Package recur evaluates weekly reminder triggers as RFC 5545 recurrences.
package recur

import (
	"time"

	"github.com/teambition/rrule-go"
	"github.com/tazhate/classbot/internal/domain"
)

var rruleDays = [domain.DaysPerWeek]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// RRuleDay maps a canonical day index to its RRULE BYDAY value.
func RRuleDay(d domain.DayIndex) rrule.Weekday {
	return rruleDays[d.Weekday()]
}

// WeeklyRule is the recurrence of a weekly trigger, anchored at dtstart and
// evaluated in dtstart's location.
func WeeklyRule(t domain.Trigger, dtstart time.Time) (*rrule.RRule, error) {
	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart.Truncate(time.Minute),
		Byweekday: []rrule.Weekday{RRuleDay(t.Weekday)},
		Byhour:    []int{t.Time.Hour},
		Byminute:  []int{t.Time.Minute},
		Bysecond:  []int{0},
	})
}

// NextFire returns when t fires next strictly after after. Weekly triggers are
// read as wall-clock times in loc. ok is false when a one-off trigger has
// already passed.
func NextFire(t domain.Trigger, after time.Time, loc *time.Location) (time.Time, bool) {
	if !t.IsWeekly() {
		return t.At, t.At.After(after)
	}
	if !t.Weekday.Valid() {
		return time.Time{}, false
	}

	r, err := WeeklyRule(t, after.In(loc))
	if err != nil {
		return time.Time{}, false
	}
	next := r.After(after, false)
	return next, !next.IsZero()
}
