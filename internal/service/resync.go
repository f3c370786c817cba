package service

import (
	"fmt"
	"log"

	"github.com/tazhate/classbot/internal/storage"
)

// Resync reinstalls reminders for every stored subject and open task, so the
// notification backends match the database after a restart or a lost write.
func Resync(s *storage.Storage, hooks *Hooks) error {
	subjects, err := s.ListSubjects()
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}
	for _, subj := range subjects {
		if err := hooks.SubjectSaved(subj, nil); err != nil {
			log.Printf("Resync: skipping subject %s: %v", subj.ID, err)
		}
	}

	tasks, err := s.ListTasks(false)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, task := range tasks {
		if err := hooks.TaskSaved(task); err != nil {
			log.Printf("Resync: skipping task %s: %v", task.ID, err)
		}
	}

	log.Printf("Resynced reminders for %d subjects and %d open tasks", len(subjects), len(tasks))
	return nil
}
