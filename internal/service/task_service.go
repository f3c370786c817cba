package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/classbot/internal/domain"
	"github.com/tazhate/classbot/internal/storage"
)

type TaskService struct {
	storage *storage.Storage
	hooks   *Hooks
	now     func() time.Time
}

func NewTaskService(s *storage.Storage, hooks *Hooks) *TaskService {
	return &TaskService{storage: s, hooks: hooks, now: time.Now}
}

// Create stores a task and installs its reminders. subjectID may be empty.
func (s *TaskService) Create(title string, due time.Time, subjectID string) (*domain.Task, error) {
	if subjectID != "" {
		subj, err := s.storage.GetSubject(subjectID)
		if err != nil {
			return nil, fmt.Errorf("get subject: %w", err)
		}
		if subj == nil {
			return nil, fmt.Errorf("subject %s: %w", subjectID, domain.ErrNotFound)
		}
	}

	task := &domain.Task{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Title:     strings.TrimSpace(title),
		Due:       due,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.CreateTask(task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := s.hooks.TaskSaved(task); err != nil {
		return nil, err
	}
	return task, nil
}

// Edit changes the title and due time. An empty title or zero due keeps the
// current value. The task's reminders are superseded.
func (s *TaskService) Edit(id, title string, due time.Time) (*domain.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if t := strings.TrimSpace(title); t != "" {
		task.Title = t
	}
	if !due.IsZero() {
		task.Due = due
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.UpdateTask(task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := s.hooks.TaskSaved(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ToggleCompleted flips the task between done and open.
func (s *TaskService) ToggleCompleted(id string) (*domain.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	task.ToggleCompleted(s.now())

	if err := s.storage.UpdateTask(task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := s.hooks.TaskCompleted(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(id string) (*domain.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.storage.DeleteTask(id); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	s.hooks.TaskDeleted(id)
	return task, nil
}

func (s *TaskService) Get(id string) (*domain.Task, error) {
	task, err := s.storage.GetTask(id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return task, nil
}

func (s *TaskService) List(includeDone bool) ([]*domain.Task, error) {
	return s.storage.ListTasks(includeDone)
}

// Remaining is the countdown text shown next to a task.
func (s *TaskService) Remaining(task *domain.Task) string {
	return task.Remaining(s.now())
}
