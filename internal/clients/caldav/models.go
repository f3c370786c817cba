package caldav

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Calendar represents a CalDAV calendar collection
type Calendar struct {
	Path        string
	DisplayName string
}

// Event represents a calendar event
type Event struct {
	UID          string // Unique ID in CalDAV
	Summary      string // Title
	Description  string
	StartTime    time.Time
	EndTime      time.Time
	Rule         *rrule.ROption // nil for a single occurrence
	AlarmAtStart bool
}
