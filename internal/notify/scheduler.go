package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tazhate/classbot/internal/domain"
)

var ErrClosed = errors.New("reminder scheduler closed")

// Catalog enumerates every identifier an owner can hold.
type Catalog interface {
	Identifiers(ownerID string) []string
}

// Scheduler serializes work per owner id: an install or cancel for one
// entity never overlaps another for the same entity, while different
// entities proceed in parallel. All calls return immediately.
type Scheduler struct {
	port     Port
	catalog  Catalog
	reporter Reporter
	settle   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string]*queue
	closed bool
	wg     sync.WaitGroup
}

type job func(ctx context.Context)

type queue struct {
	jobs []job
}

type Option func(*Scheduler)

// WithReporter replaces LogReporter.
func WithReporter(r Reporter) Option {
	return func(s *Scheduler) {
		s.reporter = r
	}
}

// WithSettleDelay waits d between the cancel phase and the register phase of
// an install. Only needed for backends whose cancel is asynchronous.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.settle = d
	}
}

func NewScheduler(port Port, catalog Catalog, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		port:     port,
		catalog:  catalog,
		reporter: LogReporter,
		ctx:      ctx,
		cancel:   cancel,
		queues:   make(map[string]*queue),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Install supersedes ownerID's reminders with specs. Every identifier in specs
// is cancelled before any of them is registered.
func (s *Scheduler) Install(ownerID string, specs []domain.ReminderSpec) {
	if len(specs) == 0 {
		return
	}
	specs = append([]domain.ReminderSpec(nil), specs...)
	s.enqueue(ownerID, func(ctx context.Context) {
		for _, spec := range specs {
			s.cancelOne(ctx, ownerID, spec.Identifier)
		}

		if s.settle > 0 {
			select {
			case <-time.After(s.settle):
			case <-ctx.Done():
				return
			}
		}

		for _, spec := range specs {
			err := s.port.Schedule(ctx, spec)
			if err == nil {
				continue
			}
			s.reporter.Report(Failure{OwnerID: ownerID, Identifier: spec.Identifier, Op: OpSchedule, Err: err})
			if errors.Is(err, domain.ErrPermissionDenied) {
				// the rest of the batch would be denied too
				return
			}
		}
	})
}

// Cancel removes the given identifiers of ownerID.
func (s *Scheduler) Cancel(ownerID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	ids = append([]string(nil), ids...)
	s.enqueue(ownerID, func(ctx context.Context) {
		for _, id := range ids {
			s.cancelOne(ctx, ownerID, id)
		}
	})
}

// CancelAll removes every identifier the catalog knows for ownerID, whether
// or not it was ever registered.
func (s *Scheduler) CancelAll(ownerID string) {
	s.Cancel(ownerID, s.catalog.Identifiers(ownerID))
}

func (s *Scheduler) cancelOne(ctx context.Context, ownerID, id string) {
	if err := s.port.Cancel(ctx, []string{id}); err != nil {
		s.reporter.Report(Failure{OwnerID: ownerID, Identifier: id, Op: OpCancel, Err: err})
	}
}

func (s *Scheduler) enqueue(ownerID string, j job) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.reporter.Report(Failure{OwnerID: ownerID, Op: OpSchedule, Err: ErrClosed})
		return
	}
	if q, ok := s.queues[ownerID]; ok {
		q.jobs = append(q.jobs, j)
		s.mu.Unlock()
		return
	}
	q := &queue{jobs: []job{j}}
	s.queues[ownerID] = q
	s.wg.Add(1)
	s.mu.Unlock()

	go s.drain(ownerID, q)
}

func (s *Scheduler) drain(ownerID string, q *queue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(q.jobs) == 0 {
			delete(s.queues, ownerID)
			s.mu.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs = q.jobs[1:]
		s.mu.Unlock()

		j(s.ctx)
	}
}

// Flush blocks until all queued work has run or ctx is done.
func (s *Scheduler) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for queued work until ctx is done,
// then aborts whatever is still running.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(ctx)
	s.cancel()
	return err
}
