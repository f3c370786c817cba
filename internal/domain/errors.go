package domain

import "errors"

var (
	ErrInvalidWeekday   = errors.New("invalid weekday index")
	ErrInvalidTime      = errors.New("invalid time of day")
	ErrInvalidSubject   = errors.New("invalid subject data")
	ErrInvalidTask      = errors.New("invalid task data")
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrNotFound         = errors.New("not found")
)

// RecoverySuggestion returns a short hint to show next to err.
func RecoverySuggestion(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Enable notifications to receive reminders"
	case errors.Is(err, ErrInvalidWeekday), errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidSubject), errors.Is(err, ErrInvalidTask):
		return "Please check your data and try again"
	case errors.Is(err, ErrNotFound):
		return "Check the ID in the list and try again"
	case err != nil:
		return "Please try again later"
	}
	return ""
}
