package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/rules"
	"gopkg.in/yaml.v3"
)

// Rules is the optional YAML file that tunes reminder horizons.
//
//	class_lead: 20m
//	day_before: "20:00"
//	task_offsets: [24, 12, 6, 3]
//	complete_cancels: true
type Rules struct {
	// ClassLead is how long before a class the first reminder fires.
	ClassLead time.Duration `yaml:"class_lead"`
	// DayBefore is the time of the reminder on the evening before a class.
	DayBefore string `yaml:"day_before"`
	// TaskOffsets are hours before a task's due time.
	TaskOffsets []int `yaml:"task_offsets"`
	// CompleteCancels stops a task's reminders once it is marked done.
	CompleteCancels *bool `yaml:"complete_cancels"`
}

func DefaultRules() *Rules {
	completeCancels := true
	return &Rules{
		ClassLead:       rules.DefaultClassLead,
		DayBefore:       rules.DefaultDayBeforeAt.String(),
		TaskOffsets:     []int{24, 12, 6, 3},
		CompleteCancels: &completeCancels,
	}
}

// Normalize fills zero values with defaults.
func (r *Rules) Normalize() {
	d := DefaultRules()
	if r.ClassLead == 0 {
		r.ClassLead = d.ClassLead
	}
	if r.DayBefore == "" {
		r.DayBefore = d.DayBefore
	}
	if len(r.TaskOffsets) == 0 {
		r.TaskOffsets = d.TaskOffsets
	}
	if r.CompleteCancels == nil {
		r.CompleteCancels = d.CompleteCancels
	}
}

// LoadRules reads path. An empty path or a missing file gives the defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultRules(), nil
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	r := &Rules{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	r.Normalize()

	if _, err := r.Engine(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return r, nil
}

// Engine builds the rule engine these settings describe.
func (r *Rules) Engine() (*rules.Engine, error) {
	at, err := domain.ParseTimeOfDay(r.DayBefore)
	if err != nil {
		return nil, fmt.Errorf("day_before: %w", err)
	}

	offsets := make([]time.Duration, 0, len(r.TaskOffsets))
	for _, h := range r.TaskOffsets {
		offsets = append(offsets, time.Duration(h)*time.Hour)
	}

	e := &rules.Engine{
		ClassLead:   r.ClassLead,
		DayBeforeAt: at,
		TaskOffsets: offsets,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
