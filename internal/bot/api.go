package bot

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tazhate/classbot/internal/domain"
)

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ClassTimeResponse struct {
	ID      string `json:"id"`
	Day     int    `json:"day"`
	DayName string `json:"day_name"`
	Time    string `json:"time"`
}

type SubjectResponse struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Times []ClassTimeResponse `json:"times"`
}

type TaskResponse struct {
	ID          string  `json:"id"`
	SubjectID   string  `json:"subject_id,omitempty"`
	Title       string  `json:"title"`
	Due         string  `json:"due"`
	Remaining   string  `json:"remaining"`
	IsDone      bool    `json:"is_done"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

type ReminderResponse struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Repeats    bool   `json:"repeats"`
	Trigger    string `json:"trigger"`
	NextRun    string `json:"next_run"`
}

// routes builds the HTTP handler. The /api endpoints are read-only and exist
// only when API credentials are configured.
func (b *Bot) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if b.cfg.APIUsername == "" || b.cfg.APIPassword == "" {
		return mux // API disabled if no credentials
	}

	mux.HandleFunc("/api/subjects", b.basicAuth(b.apiSubjects))
	mux.HandleFunc("/api/tasks", b.basicAuth(b.apiTasks))
	mux.HandleFunc("/api/reminders", b.basicAuth(b.apiReminders))
	return mux
}

// basicAuth middleware
func (b *Bot) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != b.cfg.APIUsername || password != b.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="ClassBot API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (b *Bot) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (b *Bot) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// GET /api/subjects - classes with their weekly times
func (b *Bot) apiSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := b.subjects.List()
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]SubjectResponse, 0, len(subjects))
	for _, s := range subjects {
		sortTimes(s.Times, b.cfg.FirstWeekday)
		sr := SubjectResponse{ID: s.ID, Name: s.Name, Times: make([]ClassTimeResponse, 0, len(s.Times))}
		for _, ct := range s.Times {
			sr.Times = append(sr.Times, ClassTimeResponse{
				ID:      ct.ID,
				Day:     int(ct.Day),
				DayName: ct.Day.String(),
				Time:    ct.At.String(),
			})
		}
		resp = append(resp, sr)
	}
	b.jsonResponse(w, resp)
}

// GET /api/tasks?all=1 - open tasks, or all of them
func (b *Bot) apiTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := b.tasks.List(r.URL.Query().Get("all") != "")
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := b.now()
	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, b.taskToResponse(t, now))
	}
	b.jsonResponse(w, resp)
}

// GET /api/reminders - pending reminders, soonest first
func (b *Bot) apiReminders(w http.ResponseWriter, r *http.Request) {
	pending := b.pending.Pending()
	resp := make([]ReminderResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, ReminderResponse{
			Identifier: p.Spec.Identifier,
			Title:      p.Spec.Title,
			Body:       p.Spec.Body,
			Repeats:    p.Spec.Repeats,
			Trigger:    p.Spec.Trigger.String(),
			NextRun:    p.Next.In(b.cfg.Timezone).Format(time.RFC3339),
		})
	}
	b.jsonResponse(w, resp)
}

func (b *Bot) taskToResponse(t *domain.Task, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:        t.ID,
		SubjectID: t.SubjectID,
		Title:     t.Title,
		Due:       t.Due.In(b.cfg.Timezone).Format(time.RFC3339),
		Remaining: t.Remaining(now),
		IsDone:    t.IsDone(),
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.In(b.cfg.Timezone).Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
