// Package scheduler is the local notification center: it holds the pending
// reminder triggers on a cron and delivers them over Telegram when they fire.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/recur"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// TriggerStore persists pending triggers across restarts.
type TriggerStore interface {
	SaveTrigger(spec *domain.ReminderSpec) error
	DeleteTriggers(ids []string) error
	ListTriggers() ([]*domain.ReminderSpec, error)
}

type entry struct {
	id   cron.EntryID
	spec domain.ReminderSpec
}

// Center implements notify.Port. Scheduling an identifier that is already
// pending replaces it under one lock, so there is no window with both or
// neither installed.
type Center struct {
	cron     *cron.Cron
	parser   cron.Parser
	location *time.Location
	store    TriggerStore
	now      func() time.Time

	mu      sync.Mutex
	sender  MessageSender
	chatID  int64
	entries map[string]entry
}

func New(location *time.Location, store TriggerStore) *Center {
	return &Center{
		cron:     cron.New(cron.WithLocation(location)),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		location: location,
		store:    store,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
}

// SetSender sets where reminders go. Until a sender and chat are set every
// Schedule call is refused with domain.ErrPermissionDenied.
func (c *Center) SetSender(sender MessageSender, chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sender = sender
	c.chatID = chatID
}

// Restore loads persisted triggers. One-off triggers that fired while the
// process was down are discarded.
func (c *Center) Restore() error {
	specs, err := c.store.ListTriggers()
	if err != nil {
		return fmt.Errorf("list triggers: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []string
	for _, spec := range specs {
		if c.expired(spec.Trigger) {
			stale = append(stale, spec.Identifier)
			continue
		}
		if err := c.addLocked(*spec); err != nil {
			log.Printf("Skipping trigger %s: %v", spec.Identifier, err)
			stale = append(stale, spec.Identifier)
		}
	}
	if err := c.store.DeleteTriggers(stale); err != nil {
		return fmt.Errorf("delete stale triggers: %w", err)
	}

	log.Printf("Restored %d reminder triggers (%d stale)", len(c.entries), len(stale))
	return nil
}

func (c *Center) Start(ctx context.Context) error {
	c.cron.Start()
	log.Printf("Notification center started (TZ: %s)", c.location)

	<-ctx.Done()
	return nil
}

func (c *Center) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	log.Println("Notification center stopped")
}

// Schedule registers spec, replacing any pending trigger with the same
// identifier. A one-off trigger already in the past is dropped silently.
func (c *Center) Schedule(_ context.Context, spec domain.ReminderSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sender == nil || c.chatID == 0 {
		return fmt.Errorf("no recipient for %s: %w", spec.Identifier, domain.ErrPermissionDenied)
	}

	if c.expired(spec.Trigger) {
		c.removeLocked(spec.Identifier)
		return c.store.DeleteTriggers([]string{spec.Identifier})
	}

	if err := c.store.SaveTrigger(&spec); err != nil {
		return fmt.Errorf("save trigger %s: %w", spec.Identifier, err)
	}
	return c.addLocked(spec)
}

// Cancel removes pending triggers. Unknown identifiers are ignored.
func (c *Center) Cancel(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		c.removeLocked(id)
	}
	return c.store.DeleteTriggers(ids)
}

// PendingTrigger is a scheduled reminder with its next fire time.
type PendingTrigger struct {
	Spec domain.ReminderSpec
	Next time.Time
}

// Pending lists scheduled reminders, soonest first.
func (c *Center) Pending() []PendingTrigger {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]PendingTrigger, 0, len(c.entries))
	for _, e := range c.entries {
		next, ok := recur.NextFire(e.spec.Trigger, now, c.location)
		if !ok {
			continue
		}
		out = append(out, PendingTrigger{Spec: e.spec, Next: next})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Next.Equal(out[j].Next) {
			return out[i].Spec.Identifier < out[j].Spec.Identifier
		}
		return out[i].Next.Before(out[j].Next)
	})
	return out
}

func (c *Center) expired(t domain.Trigger) bool {
	return !t.IsWeekly() && !t.At.After(c.now())
}

func (c *Center) addLocked(spec domain.ReminderSpec) error {
	sched, err := c.schedule(spec.Trigger)
	if err != nil {
		return err
	}
	c.removeLocked(spec.Identifier)

	identifier := spec.Identifier
	id := c.cron.Schedule(sched, cron.FuncJob(func() { c.fire(identifier) }))
	c.entries[identifier] = entry{id: id, spec: spec}
	return nil
}

func (c *Center) removeLocked(identifier string) {
	if e, ok := c.entries[identifier]; ok {
		c.cron.Remove(e.id)
		delete(c.entries, identifier)
	}
}

func (c *Center) schedule(t domain.Trigger) (cron.Schedule, error) {
	if !t.IsWeekly() {
		return onceSchedule{at: t.At}, nil
	}
	if !t.Weekday.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidWeekday, int(t.Weekday))
	}
	spec := fmt.Sprintf("%d %d * * %d", t.Time.Minute, t.Time.Hour, int(t.Weekday.Weekday()))
	return c.parser.Parse(spec)
}

func (c *Center) fire(identifier string) {
	c.mu.Lock()
	e, ok := c.entries[identifier]
	if !ok {
		c.mu.Unlock()
		return
	}
	if !e.spec.Repeats {
		c.removeLocked(identifier)
		if err := c.store.DeleteTriggers([]string{identifier}); err != nil {
			log.Printf("Error deleting fired trigger %s: %v", identifier, err)
		}
	}
	sender, chatID := c.sender, c.chatID
	c.mu.Unlock()

	if sender == nil {
		return
	}
	text := fmt.Sprintf("🔔 <b>%s</b>\n\n%s", e.spec.Title, e.spec.Body)
	if err := sender.SendMessage(chatID, text); err != nil {
		log.Printf("Error sending reminder %s: %v", identifier, err)
	}
}

// onceSchedule fires a single time at a fixed instant. cron never runs an
// entry whose next time is zero.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}
