package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	timeNow     = func() time.Time { return time.Now().UTC() }
)

// DateLayout is the calendar-date format used for due dates.
const DateLayout = "2006-01-02"

// Store is the CRUD contract every task backend satisfies.
type Store interface {
	// List returns all tasks ordered by status column, then position.
	List(ctx context.Context) ([]Task, error)
	Create(ctx context.Context, in CreateInput) (*Task, error)
	Update(ctx context.Context, id string, p Patch) (*Task, error)
	Delete(ctx context.Context, id string) error
}

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Label is the column heading for s.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Phrase is s as it reads in a sentence ("in progress").
func (s Status) Phrase() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func (s Status) index() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return len(Statuses)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// statusSynonyms is keyed by the lowercased word with spaces, '_' and '-' removed.
var statusSynonyms = map[string]Status{
	"todo":       StatusTodo,
	"open":       StatusTodo,
	"inprogress": StatusInProgress,
	"doing":      StatusInProgress,
	"started":    StatusInProgress,
	"done":       StatusDone,
	"complete":   StatusDone,
	"completed":  StatusDone,
	"finished":   StatusDone,
}

// ParseStatus maps a status word or any of its synonyms to the canonical status.
func ParseStatus(s string) (Status, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "", "\t", "").Replace(key)
	st, ok := statusSynonyms[key]
	return st, ok
}

// PrioritySynonyms is the priority keyword table shared by the CLI, the HTTP filters and
// the chat interpreter. Order matters when a phrase holds several keywords: the first
// entry found wins.
var PrioritySynonyms = []struct {
	Word     string
	Priority Priority
}{
	{"urgent", PriorityHigh},
	{"high", PriorityHigh},
	{"personal", PriorityLow},
	{"low", PriorityLow},
	{"work", PriorityMedium},
	{"medium", PriorityMedium},
}

// ParsePriority maps a single priority word or synonym to its level.
func ParsePriority(p string) (Priority, bool) {
	key := strings.ToLower(strings.TrimSpace(p))
	for _, syn := range PrioritySynonyms {
		if syn.Word == key {
			return syn.Priority, true
		}
	}
	return "", false
}

type Task struct {
	Schema       int       `yaml:"schema" json:"-"`
	ID           string    `yaml:"id" json:"id"`
	Title        string    `yaml:"title" json:"title"`
	Status       Status    `yaml:"status" json:"status"`
	Priority     Priority  `yaml:"priority" json:"priority"`
	DueDate      string    `yaml:"due_date,omitempty" json:"due_date,omitempty"`
	TimeEstimate *int      `yaml:"time_estimate,omitempty" json:"time_estimate,omitempty"`
	Tags         []string  `yaml:"tags" json:"tags"`
	Position     int       `yaml:"position" json:"position"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updated_at"`
	// Description is kept in the document body, not the frontmatter.
	Description string `yaml:"-" json:"description,omitempty"`
}

type CreateInput struct {
	Title        string   `json:"title"`
	Status       Status   `json:"status,omitempty"`
	Priority     Priority `json:"priority,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	TimeEstimate *int     `json:"time_estimate,omitempty"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Title             *string   `json:"title,omitempty"`
	Status            *Status   `json:"status,omitempty"`
	Priority          *Priority `json:"priority,omitempty"`
	DueDate           *string   `json:"due_date,omitempty"`
	ClearDueDate      bool      `json:"clear_due_date,omitempty"`
	TimeEstimate      *int      `json:"time_estimate,omitempty"`
	ClearTimeEstimate bool      `json:"clear_time_estimate,omitempty"`
	Description       *string   `json:"description,omitempty"`
	Tags              *[]string `json:"tags,omitempty"`
	Position          *int      `json:"position,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil && p.DueDate == nil &&
		!p.ClearDueDate && p.TimeEstimate == nil && !p.ClearTimeEstimate &&
		p.Description == nil && p.Tags == nil && p.Position == nil
}

// NormalizeCreate validates in and fills the defaults (todo, medium).
func NormalizeCreate(in CreateInput) (CreateInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !in.Status.Valid() {
		return in, fmt.Errorf("%w: unknown status %q", ErrInvalid, in.Status)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return in, fmt.Errorf("%w: unknown priority %q", ErrInvalid, in.Priority)
	}
	in.DueDate = strings.TrimSpace(in.DueDate)
	if err := validateDueDate(in.DueDate); err != nil {
		return in, err
	}
	if in.TimeEstimate != nil && *in.TimeEstimate < 0 {
		return in, fmt.Errorf("%w: time estimate must not be negative", ErrInvalid)
	}
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = dedupeStrings(in.Tags)
	return in, nil
}

// Apply validates p and applies it to t in place.
func (p Patch) Apply(t *Task) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return fmt.Errorf("%w: title is required", ErrInvalid)
		}
		t.Title = title
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalid, *p.Status)
		}
		t.Status = *p.Status
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return fmt.Errorf("%w: unknown priority %q", ErrInvalid, *p.Priority)
		}
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = ""
	}
	if p.DueDate != nil {
		due := strings.TrimSpace(*p.DueDate)
		if err := validateDueDate(due); err != nil {
			return err
		}
		t.DueDate = due
	}
	if p.ClearTimeEstimate {
		t.TimeEstimate = nil
	}
	if p.TimeEstimate != nil {
		if *p.TimeEstimate < 0 {
			return fmt.Errorf("%w: time estimate must not be negative", ErrInvalid)
		}
		v := *p.TimeEstimate
		t.TimeEstimate = &v
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Tags != nil {
		t.Tags = dedupeStrings(*p.Tags)
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
	return nil
}

func validateDueDate(due string) error {
	if due == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, due); err != nil {
		return fmt.Errorf("%w: due date %q is not YYYY-MM-DD", ErrInvalid, due)
	}
	return nil
}

// NextPosition returns the position for a newly created task: one past the highest in use.
func NextPosition(tasks []Task) int {
	max := 0
	for _, t := range tasks {
		if t.Position > max {
			max = t.Position
		}
	}
	return max + 1
}

// SortTasks orders tasks by status column, then position, then creation time.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if ai, bi := a.Status.index(), b.Status.index(); ai != bi {
			return ai < bi
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (t *Task) IDShort(n int) string {
	s := t.ID
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (t *Task) StatusAbbrev() string {
	switch t.Status {
	case StatusTodo:
		return "o"
	case StatusInProgress:
		return "d"
	case StatusDone:
		return "✓"
	default:
		return "?"
	}
}

func (t *Task) PriorityAbbrev() string {
	switch t.Priority {
	case PriorityLow:
		return "L"
	case PriorityMedium:
		return "M"
	case PriorityHigh:
		return "H"
	default:
		return "?"
	}
}

func (t *Task) RenderHuman() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s\n", t.Title))
	b.WriteString(fmt.Sprintf("ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf("Status: %s\n", t.Status.Label()))
	b.WriteString(fmt.Sprintf("Priority: %s\n", t.Priority))
	if t.DueDate != "" {
		b.WriteString(fmt.Sprintf("Due: %s\n", t.DueDate))
	}
	if t.TimeEstimate != nil {
		b.WriteString(fmt.Sprintf("Estimate: %d min\n", *t.TimeEstimate))
	}
	if len(t.Tags) > 0 {
		b.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(t.Tags, ", ")))
	}
	b.WriteString(fmt.Sprintf("Position: %d\n", t.Position))
	if strings.TrimSpace(t.Description) != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(t.Description, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
