package domain

import (
	"fmt"
	"strings"
	"time"
)

// Horizon names how far ahead of an event a reminder fires. It is the
// suffix of the reminder identifier ("<owner>_<horizon>").
type Horizon string

const (
	Horizon20Min  Horizon = "20min"
	Horizon1Day   Horizon = "1day"
	Horizon24Hour Horizon = "24hour"
	Horizon12Hour Horizon = "12hour"
	Horizon6Hour  Horizon = "6hour"
	Horizon3Hour  Horizon = "3hour"
)

// ClassHorizons and TaskHorizons are the default suffix families.
var (
	ClassHorizons = []Horizon{Horizon20Min, Horizon1Day}
	TaskHorizons  = []Horizon{Horizon24Hour, Horizon12Hour, Horizon6Hour, Horizon3Hour}
)

// MinutesHorizon is the horizon for a lead expressed in minutes ("45min").
func MinutesHorizon(lead time.Duration) Horizon {
	return Horizon(fmt.Sprintf("%dmin", int(lead/time.Minute)))
}

// HoursHorizon is the horizon for an offset expressed in hours ("24hour").
func HoursHorizon(offset time.Duration) Horizon {
	return Horizon(fmt.Sprintf("%dhour", int(offset/time.Hour)))
}

// ReminderID derives the identifier of the reminder for owner at horizon.
func ReminderID(ownerID string, h Horizon) string {
	return ownerID + "_" + string(h)
}

// SplitReminderID is the inverse of ReminderID.
func SplitReminderID(id string) (ownerID string, h Horizon, ok bool) {
	i := strings.LastIndex(id, "_")
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], Horizon(id[i+1:]), true
}

// Trigger is the calendar match of a reminder. Weekly triggers set Weekday
// and the time of day; one-off triggers set At, the absolute fire time.
type Trigger struct {
	Weekday DayIndex
	Time    TimeOfDay
	At      time.Time
}

// IsWeekly reports whether the trigger repeats on a weekday.
func (t Trigger) IsWeekly() bool {
	return t.Weekday != 0
}

func (t Trigger) String() string {
	if t.IsWeekly() {
		return fmt.Sprintf("every %s at %s", t.Weekday, t.Time)
	}
	return t.At.Format("2006-01-02 15:04:05")
}

// ReminderSpec is one notification the rules want to exist.
type ReminderSpec struct {
	Identifier string
	OwnerID    string
	Trigger    Trigger
	Repeats    bool
	Title      string
	Body       string
}
