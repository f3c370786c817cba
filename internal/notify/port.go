// Package notify keeps the notification store in line with the reminders the
// rules ask for: cancel what an entity owned, then register the new set.
package notify

import (
	"context"
	"errors"

	"github.com/tazhate/classbot/internal/domain"
)

// Port is a notification backend addressed by identifier. Cancelling an
// unknown identifier must be a no-op.
type Port interface {
	Schedule(ctx context.Context, spec domain.ReminderSpec) error
	Cancel(ctx context.Context, ids []string) error
}

// Multi fans every call out to all ports. Each port is attempted even if an
// earlier one fails; the errors are joined.
func Multi(ports ...Port) Port {
	var live []Port
	for _, p := range ports {
		if p != nil {
			live = append(live, p)
		}
	}
	if len(live) == 1 {
		return live[0]
	}
	return multiPort(live)
}

type multiPort []Port

func (m multiPort) Schedule(ctx context.Context, spec domain.ReminderSpec) error {
	var errs []error
	for _, p := range m {
		if err := p.Schedule(ctx, spec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiPort) Cancel(ctx context.Context, ids []string) error {
	var errs []error
	for _, p := range m {
		if err := p.Cancel(ctx, ids); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
