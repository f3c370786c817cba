package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/classbot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS subjects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS class_times (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			day_index INTEGER NOT NULL CHECK (day_index BETWEEN 1 AND 7),
			hour INTEGER NOT NULL,
			minute INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_class_times_subject ON class_times(subject_id)`,
		`CREATE INDEX IF NOT EXISTS idx_class_times_day ON class_times(day_index)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			due_at DATETIME NOT NULL,
			completed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due_at ON tasks(due_at)`,
		// Pending notification triggers of the local center
		`CREATE TABLE IF NOT EXISTS triggers (
			identifier TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			weekday INTEGER NOT NULL DEFAULT 0,
			hour INTEGER NOT NULL DEFAULT 0,
			minute INTEGER NOT NULL DEFAULT 0,
			fire_at DATETIME,
			repeats INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_triggers_owner ON triggers(owner_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Subjects ===

// CreateSubject inserts the subject together with its class times.
func (s *Storage) CreateSubject(subj *domain.Subject) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`INSERT INTO subjects (id, name, created_at) VALUES (?, ?, ?)`, subj.ID, subj.Name, now.UTC()); err != nil {
		return err
	}
	for _, ct := range subj.Times {
		ct.SubjectID = subj.ID
		if err := insertClassTime(tx, ct, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	subj.CreatedAt = now
	return nil
}

func (s *Storage) GetSubject(id string) (*domain.Subject, error) {
	subj := &domain.Subject{}
	err := s.db.QueryRow(
		`SELECT id, name, created_at FROM subjects WHERE id = ?`,
		id,
	).Scan(&subj.ID, &subj.Name, &subj.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	times, err := s.listClassTimes(`WHERE subject_id = ?`, id)
	if err != nil {
		return nil, err
	}
	subj.Times = times
	return subj, nil
}

func (s *Storage) ListSubjects() ([]*domain.Subject, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []*domain.Subject
	byID := make(map[string]*domain.Subject)
	for rows.Next() {
		subj := &domain.Subject{}
		if err := rows.Scan(&subj.ID, &subj.Name, &subj.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, subj)
		byID[subj.ID] = subj
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	times, err := s.listClassTimes(``)
	if err != nil {
		return nil, err
	}
	for _, ct := range times {
		if subj := byID[ct.SubjectID]; subj != nil {
			subj.Times = append(subj.Times, ct)
		}
	}
	return subjects, nil
}

// ListSubjectsByDay returns subjects meeting on day, each carrying only its
// class times for that day.
func (s *Storage) ListSubjectsByDay(day domain.DayIndex) ([]*domain.Subject, error) {
	times, err := s.listClassTimes(`WHERE day_index = ?`, day)
	if err != nil {
		return nil, err
	}

	var subjects []*domain.Subject
	byID := make(map[string]*domain.Subject)
	for _, ct := range times {
		subj := byID[ct.SubjectID]
		if subj == nil {
			subj, err = s.getSubjectRow(ct.SubjectID)
			if err != nil {
				return nil, err
			}
			if subj == nil {
				continue
			}
			byID[ct.SubjectID] = subj
			subjects = append(subjects, subj)
		}
		subj.Times = append(subj.Times, ct)
	}
	return subjects, nil
}

func (s *Storage) getSubjectRow(id string) (*domain.Subject, error) {
	subj := &domain.Subject{}
	err := s.db.QueryRow(`SELECT id, name, created_at FROM subjects WHERE id = ?`, id).
		Scan(&subj.ID, &subj.Name, &subj.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return subj, err
}

// UpdateSubject renames the subject and replaces its class times.
func (s *Storage) UpdateSubject(subj *domain.Subject) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE subjects SET name = ? WHERE id = ?`, subj.Name, subj.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subject %s: %w", subj.ID, domain.ErrNotFound)
	}
	if _, err := tx.Exec(`DELETE FROM class_times WHERE subject_id = ?`, subj.ID); err != nil {
		return err
	}
	now := time.Now()
	for _, ct := range subj.Times {
		ct.SubjectID = subj.ID
		if err := insertClassTime(tx, ct, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Storage) DeleteSubject(id string) error {
	_, err := s.db.Exec(`DELETE FROM subjects WHERE id = ?`, id)
	return err
}

// === Class times ===

func (s *Storage) AddClassTime(ct *domain.ClassTime) error {
	now := time.Now()
	return insertClassTime(s.db, ct, now)
}

func (s *Storage) GetClassTime(id string) (*domain.ClassTime, error) {
	times, err := s.listClassTimes(`WHERE id = ?`, id)
	if err != nil || len(times) == 0 {
		return nil, err
	}
	return times[0], nil
}

func (s *Storage) DeleteClassTime(id string) error {
	_, err := s.db.Exec(`DELETE FROM class_times WHERE id = ?`, id)
	return err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertClassTime(db execer, ct *domain.ClassTime, now time.Time) error {
	_, err := db.Exec(
		`INSERT INTO class_times (id, subject_id, day_index, hour, minute, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ct.ID, ct.SubjectID, int(ct.Day), ct.At.Hour, ct.At.Minute, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert class time %s: %w", ct.ID, err)
	}
	ct.CreatedAt = now
	return nil
}

func (s *Storage) listClassTimes(where string, args ...any) ([]*domain.ClassTime, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_id, day_index, hour, minute, created_at FROM class_times `+where+` ORDER BY day_index, hour, minute`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []*domain.ClassTime
	for rows.Next() {
		ct := &domain.ClassTime{}
		if err := rows.Scan(&ct.ID, &ct.SubjectID, &ct.Day, &ct.At.Hour, &ct.At.Minute, &ct.CreatedAt); err != nil {
			return nil, err
		}
		times = append(times, ct)
	}
	return times, rows.Err()
}

// === Tasks ===

func (s *Storage) CreateTask(t *domain.Task) error {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, subject_id, title, due_at, completed_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.SubjectID, t.Title, t.Due.UTC(), utcPtr(t.CompletedAt), now.UTC(),
	)
	if err != nil {
		return err
	}
	t.CreatedAt = now
	return nil
}

func (s *Storage) GetTask(id string) (*domain.Task, error) {
	tasks, err := s.listTasks(`WHERE id = ?`, id)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return tasks[0], nil
}

func (s *Storage) UpdateTask(t *domain.Task) error {
	res, err := s.db.Exec(
		`UPDATE tasks SET subject_id = ?, title = ?, due_at = ?, completed_at = ? WHERE id = ?`,
		t.SubjectID, t.Title, t.Due.UTC(), utcPtr(t.CompletedAt), t.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Storage) DeleteTask(id string) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// ListTasks returns tasks ordered by due date.
func (s *Storage) ListTasks(includeDone bool) ([]*domain.Task, error) {
	if includeDone {
		return s.listTasks(``)
	}
	return s.listTasks(`WHERE completed_at IS NULL`)
}

// ListTasksDueBetween returns open tasks with from <= due < to.
func (s *Storage) ListTasksDueBetween(from, to time.Time) ([]*domain.Task, error) {
	return s.listTasks(`WHERE completed_at IS NULL AND due_at >= ? AND due_at < ?`, from.UTC(), to.UTC())
}

func (s *Storage) ListTasksBySubject(subjectID string) ([]*domain.Task, error) {
	return s.listTasks(`WHERE subject_id = ?`, subjectID)
}

func (s *Storage) listTasks(where string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_id, title, due_at, completed_at, created_at FROM tasks `+where+` ORDER BY due_at`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t := &domain.Task{}
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Title, &t.Due, &t.CompletedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// === Triggers ===

// SaveTrigger stores spec, replacing any trigger with the same identifier.
func (s *Storage) SaveTrigger(spec *domain.ReminderSpec) error {
	var fireAt *time.Time
	if !spec.Trigger.IsWeekly() {
		at := spec.Trigger.At.UTC()
		fireAt = &at
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO triggers (identifier, owner_id, weekday, hour, minute, fire_at, repeats, title, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		spec.Identifier, spec.OwnerID, int(spec.Trigger.Weekday), spec.Trigger.Time.Hour, spec.Trigger.Time.Minute,
		fireAt, spec.Repeats, spec.Title, spec.Body,
	)
	return err
}

func (s *Storage) DeleteTriggers(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.Exec(`DELETE FROM triggers WHERE identifier IN (`+placeholders+`)`, args...)
	return err
}

func (s *Storage) ListTriggers() ([]*domain.ReminderSpec, error) {
	rows, err := s.db.Query(
		`SELECT identifier, owner_id, weekday, hour, minute, fire_at, repeats, title, body FROM triggers ORDER BY identifier`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []*domain.ReminderSpec
	for rows.Next() {
		spec := &domain.ReminderSpec{}
		var fireAt *time.Time
		if err := rows.Scan(&spec.Identifier, &spec.OwnerID, &spec.Trigger.Weekday, &spec.Trigger.Time.Hour,
			&spec.Trigger.Time.Minute, &fireAt, &spec.Repeats, &spec.Title, &spec.Body); err != nil {
			return nil, err
		}
		if fireAt != nil {
			spec.Trigger.At = *fireAt
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}
