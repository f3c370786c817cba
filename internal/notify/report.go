package notify

import (
	"fmt"
	"log"
)

type Op string

const (
	OpCancel   Op = "cancel"
	OpSchedule Op = "schedule"
)

// Failure describes a backend call that did not go through. It never
// propagates into the mutation that caused it.
type Failure struct {
	OwnerID    string
	Identifier string
	Op         Op
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s (owner %s): %v", f.Op, f.Identifier, f.OwnerID, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Reporter receives failures.
type Reporter interface {
	Report(f Failure)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(f Failure)

func (fn ReporterFunc) Report(f Failure) {
	fn(f)
}

// LogReporter writes failures to the standard logger.
var LogReporter = ReporterFunc(func(f Failure) {
	log.Printf("Reminder %v", f)
})
