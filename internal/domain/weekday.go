package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayIndex is the canonical 1..7 weekday numbering used by the reminder
// rules: Sunday = 1, Monday = 2, ... Saturday = 7.
type DayIndex int

const (
	Sunday    DayIndex = 1
	Monday    DayIndex = 2
	Tuesday   DayIndex = 3
	Wednesday DayIndex = 4
	Thursday  DayIndex = 5
	Friday    DayIndex = 6
	Saturday  DayIndex = 7
)

// DaysPerWeek is the size of the index range.
const DaysPerWeek = 7

// dayNames is the single table behind DayName, ShortName and ParseDay.
var dayNames = [DaysPerWeek]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Valid reports whether d is within 1..7.
func (d DayIndex) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// Prev returns the day before d, wrapping Sunday back to Saturday.
func (d DayIndex) Prev() DayIndex {
	return d.Add(-1)
}

// Add moves d by n days, wrapping within 1..7.
func (d DayIndex) Add(n int) DayIndex {
	i := (int(d) - 1 + n) % DaysPerWeek
	if i < 0 {
		i += DaysPerWeek
	}
	return DayIndex(i + 1)
}

// Weekday converts d to the standard library weekday.
func (d DayIndex) Weekday() time.Weekday {
	return time.Weekday(int(d) - 1)
}

func (d DayIndex) String() string {
	name, err := DayName(d)
	if err != nil {
		return fmt.Sprintf("DayIndex(%d)", int(d))
	}
	return name
}

// DayName returns the English name for the index.
func DayName(d DayIndex) (string, error) {
	if !d.Valid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidWeekday, int(d))
	}
	return dayNames[d-1], nil
}

// ShortName returns the three-letter name ("Sun", "Mon", ...).
func ShortName(d DayIndex) (string, error) {
	name, err := DayName(d)
	if err != nil {
		return "", err
	}
	return name[:3], nil
}

// ParseDay accepts a full or three-letter English day name, case insensitive.
func ParseDay(s string) (DayIndex, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for i, name := range dayNames {
			full := strings.ToLower(name)
			if s == full || s == full[:3] {
				return DayIndex(i + 1), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unknown day %q", ErrInvalidWeekday, s)
}

// IndexOf maps a calendar weekday to its canonical index.
func IndexOf(w time.Weekday) DayIndex {
	return DayIndex(int(w) + 1)
}

// TodayIndex returns the canonical index of now's weekday.
// time.Weekday is already anchored on Sunday, so no first-weekday
// correction applies here.
func TodayIndex(now time.Time) DayIndex {
	return IndexOf(now.Weekday())
}

// FromRelative converts a weekday number counted from the configured first
// day of the week (1 = first day) into the canonical index. Calendar APIs
// that number weekdays relative to the locale need this; with a Monday-first
// locale n=1 is Monday, so the canonical index is n+1 wrapping 8 to 1.
func FromRelative(n int, first time.Weekday) (DayIndex, error) {
	if n < 1 || n > DaysPerWeek {
		return 0, fmt.Errorf("%w: relative day %d", ErrInvalidWeekday, n)
	}
	return IndexOf(first).Add(n - 1), nil
}

// WeekOrder lists all seven days starting from first, for display.
func WeekOrder(first time.Weekday) []DayIndex {
	start := IndexOf(first)
	days := make([]DayIndex, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		days = append(days, start.Add(i))
	}
	return days
}

// ParseFirstWeekday parses the FIRST_WEEKDAY setting ("sunday" or "monday").
func ParseFirstWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	}
	return time.Sunday, fmt.Errorf("unsupported first weekday %q", s)
}
