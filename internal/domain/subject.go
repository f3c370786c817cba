package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time that recurs every week.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// MinutesPerDay is the number of minutes in a TimeOfDay day.
const MinutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" (24h). A single-digit hour is accepted.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	t := TimeOfDay{Hour: h, Minute: m}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t, nil
}

// FromMinutes builds a TimeOfDay from minutes since midnight, wrapping days.
func FromMinutes(total int) TimeOfDay {
	total %= MinutesPerDay
	if total < 0 {
		total += MinutesPerDay
	}
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String formats t as a short "15:04" time.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns t on the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// ClassTime is one weekly occurrence of a subject. Its ID is also the root
// of the derived reminder identifiers.
type ClassTime struct {
	ID        string
	SubjectID string
	Day       DayIndex
	At        TimeOfDay
	CreatedAt time.Time
}

// Validate checks the weekday and time ranges.
func (c *ClassTime) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: class time without id", ErrInvalidSubject)
	}
	if !c.Day.Valid() {
		return fmt.Errorf("class time %s: %w: %d", c.ID, ErrInvalidWeekday, int(c.Day))
	}
	if !c.At.Valid() {
		return fmt.Errorf("class time %s: %w: %02d:%02d", c.ID, ErrInvalidTime, c.At.Hour, c.At.Minute)
	}
	return nil
}

// Label returns e.g. "Mon 09:00".
func (c *ClassTime) Label() string {
	short, err := ShortName(c.Day)
	if err != nil {
		short = "?"
	}
	return short + " " + c.At.String()
}

// Subject is a recurring class with one or more weekly slots.
type Subject struct {
	ID        string
	Name      string
	Times     []*ClassTime
	CreatedAt time.Time
}

// Validate checks that the subject is complete enough to schedule.
func (s *Subject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: subject name cannot be empty", ErrInvalidSubject)
	}
	if len(s.Times) == 0 {
		return fmt.Errorf("%w: subject %q has no class times", ErrInvalidSubject, s.Name)
	}
	for _, ct := range s.Times {
		if err := ct.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TimeIDs returns the ids of all class times.
func (s *Subject) TimeIDs() []string {
	ids := make([]string, 0, len(s.Times))
	for _, ct := range s.Times {
		ids = append(ids, ct.ID)
	}
	return ids
}

// RemovedTimes returns the ids present in old but missing from s.
func (s *Subject) RemovedTimes(old *Subject) []string {
	if old == nil {
		return nil
	}
	keep := make(map[string]bool, len(s.Times))
	for _, ct := range s.Times {
		keep[ct.ID] = true
	}
	var removed []string
	for _, ct := range old.Times {
		if !keep[ct.ID] {
			removed = append(removed, ct.ID)
		}
	}
	return removed
}
