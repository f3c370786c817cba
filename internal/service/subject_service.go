package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/storage"
)

type SubjectService struct {
	storage  *storage.Storage
	hooks    *Hooks
	location *time.Location
}

func NewSubjectService(s *storage.Storage, hooks *Hooks, location *time.Location) *SubjectService {
	return &SubjectService{storage: s, hooks: hooks, location: location}
}

// Create stores a subject with its weekly times and installs their reminders.
// Times without an id get a fresh one.
func (s *SubjectService) Create(name string, times []*domain.ClassTime) (*domain.Subject, error) {
	subj := &domain.Subject{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(name),
		Times: times,
	}
	assignTimeIDs(subj)
	if err := subj.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.CreateSubject(subj); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	if err := s.hooks.SubjectSaved(subj, nil); err != nil {
		return nil, err
	}
	return subj, nil
}

// Update replaces the subject's name and times. Reminders of times that are
// no longer present are cancelled.
func (s *SubjectService) Update(subj *domain.Subject) error {
	old, err := s.Get(subj.ID)
	if err != nil {
		return err
	}

	subj.Name = strings.TrimSpace(subj.Name)
	assignTimeIDs(subj)
	if err := subj.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateSubject(subj); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return s.hooks.SubjectSaved(subj, subj.RemovedTimes(old))
}

func (s *SubjectService) AddTime(subjectID string, day domain.DayIndex, at domain.TimeOfDay) (*domain.ClassTime, error) {
	subj, err := s.Get(subjectID)
	if err != nil {
		return nil, err
	}

	ct := &domain.ClassTime{ID: uuid.NewString(), SubjectID: subj.ID, Day: day, At: at}
	if err := ct.Validate(); err != nil {
		return nil, err
	}
	if err := s.storage.AddClassTime(ct); err != nil {
		return nil, fmt.Errorf("add class time: %w", err)
	}

	subj.Times = append(subj.Times, ct)
	if err := s.hooks.SubjectSaved(subj, nil); err != nil {
		return nil, err
	}
	return ct, nil
}

// RemoveTime deletes one weekly time. The last time of a subject cannot be
// removed; delete the subject instead.
func (s *SubjectService) RemoveTime(timeID string) (*domain.Subject, error) {
	ct, err := s.storage.GetClassTime(timeID)
	if err != nil {
		return nil, fmt.Errorf("get class time: %w", err)
	}
	if ct == nil {
		return nil, fmt.Errorf("class time %s: %w", timeID, domain.ErrNotFound)
	}
	subj, err := s.Get(ct.SubjectID)
	if err != nil {
		return nil, err
	}
	if len(subj.Times) <= 1 {
		return nil, fmt.Errorf("%w: %q needs at least one class time", domain.ErrInvalidSubject, subj.Name)
	}

	if err := s.storage.DeleteClassTime(timeID); err != nil {
		return nil, fmt.Errorf("delete class time: %w", err)
	}
	s.hooks.ClassTimesRemoved([]string{timeID})

	kept := subj.Times[:0]
	for _, t := range subj.Times {
		if t.ID != timeID {
			kept = append(kept, t)
		}
	}
	subj.Times = kept
	return subj, nil
}

func (s *SubjectService) Delete(id string) (*domain.Subject, error) {
	subj, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.storage.DeleteSubject(id); err != nil {
		return nil, fmt.Errorf("delete subject: %w", err)
	}
	s.hooks.SubjectDeleted(subj)
	return subj, nil
}

func (s *SubjectService) Get(id string) (*domain.Subject, error) {
	subj, err := s.storage.GetSubject(id)
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if subj == nil {
		return nil, fmt.Errorf("subject %s: %w", id, domain.ErrNotFound)
	}
	return subj, nil
}

func (s *SubjectService) List() ([]*domain.Subject, error) {
	return s.storage.ListSubjects()
}

// ListForToday returns subjects with a class on now's weekday, with only
// that day's times.
func (s *SubjectService) ListForToday(now time.Time) ([]*domain.Subject, error) {
	return s.storage.ListSubjectsByDay(domain.TodayIndex(now.In(s.location)))
}

func assignTimeIDs(subj *domain.Subject) {
	for _, ct := range subj.Times {
		if ct.ID == "" {
			ct.ID = uuid.NewString()
		}
		ct.SubjectID = subj.ID
	}
}
