package store

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Column is one status column of the board with its tasks in position order.
type Column struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Tasks  []Task `json:"tasks"`
}

// BoardColumns groups tasks by status in display order. Every status gets a column,
// empty or not.
func BoardColumns(tasks []Task) []Column {
	sorted := append([]Task(nil), tasks...)
	SortTasks(sorted)
	cols := make([]Column, 0, len(Statuses))
	for _, st := range Statuses {
		col := Column{Status: st, Label: st.Label(), Tasks: []Task{}}
		for _, t := range sorted {
			if t.Status == st {
				col.Tasks = append(col.Tasks, t)
			}
		}
		cols = append(cols, col)
	}
	return cols
}

func RenderBoard(tasks []Task, ascii bool, openOnly bool) string {
	var b strings.Builder
	wroteAny := false
	for _, col := range BoardColumns(tasks) {
		if openOnly && col.Status == StatusDone {
			continue
		}
		if len(col.Tasks) == 0 {
			continue
		}
		if wroteAny {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s (%d)\n", col.Label, len(col.Tasks)))
		for _, t := range col.Tasks {
			b.WriteString(fmt.Sprintf("  - %s%s\n", priorityLabel(t.Priority), truncate(taskTitle(t.Title), 80, ascii)))
		}
		wroteAny = true
	}
	if !wroteAny {
		b.WriteString("(no tasks)\n")
	}
	return b.String()
}

// DueBuckets splits open tasks with a due date into overdue and due-today relative to now.
func DueBuckets(tasks []Task, now time.Time) (dueToday, overdue []Task) {
	today := now.Format(DateLayout)
	for _, t := range tasks {
		if t.Status == StatusDone || t.DueDate == "" {
			continue
		}
		switch {
		case t.DueDate == today:
			dueToday = append(dueToday, t)
		case t.DueDate < today:
			overdue = append(overdue, t)
		}
	}
	return dueToday, overdue
}

func RenderToday(tasks []Task, now time.Time) string {
	today := now.Format(DateLayout)
	dueToday, overdue := DueBuckets(tasks, now)
	if len(dueToday) == 0 && len(overdue) == 0 {
		return fmt.Sprintf("Today (%s) - nothing due, nothing overdue\n", today)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Today (%s) - due %d, overdue %d\n\n", today, len(dueToday), len(overdue)))
	writeTaskSection(&b, "Due today", dueToday, now, false)
	writeTaskSection(&b, "Overdue", overdue, now, true)
	return b.String()
}

// RenderAgenda lists open tasks due in the next days days (today included), plus overdue ones.
func RenderAgenda(tasks []Task, now time.Time, days int) string {
	if days <= 0 {
		days = 7
	}
	start := startOfDay(now)
	end := start.AddDate(0, 0, days-1)
	rangeLabel := fmt.Sprintf("%s -> %s", start.Format(DateLayout), end.Format(DateLayout))

	var overdue []Task
	byDate := map[string][]Task{}
	for _, t := range tasks {
		if t.Status == StatusDone {
			continue
		}
		d, ok := parseDate(t.DueDate, now.Location())
		if !ok {
			continue
		}
		if d.Before(start) {
			overdue = append(overdue, t)
			continue
		}
		if d.After(end) {
			continue
		}
		key := d.Format(DateLayout)
		byDate[key] = append(byDate[key], t)
	}
	if lenByDate(byDate) == 0 && len(overdue) == 0 {
		return fmt.Sprintf("Week (%d days) - %s - nothing due, nothing overdue\n", days, rangeLabel)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Week (%d days) - %s - due %d, overdue %d\n\n", days, rangeLabel, lenByDate(byDate), len(overdue)))
	writeTaskSection(&b, "Overdue", overdue, now, true)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		key := d.Format(DateLayout)
		label := fmt.Sprintf("%s (%s)", key, d.Weekday().String()[:3])
		writeTaskSection(&b, label, byDate[key], now, false)
	}
	return b.String()
}

// Stats is the dashboard summary of a task collection.
type Stats struct {
	Total          int    `json:"total"`
	Todo           int    `json:"todo"`
	InProgress     int    `json:"in_progress"`
	Done           int    `json:"done"`
	CompletionRate int    `json:"completion_rate"`
	Recent         []Task `json:"recent"`
}

const recentLimit = 5

func ComputeStats(tasks []Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			s.Todo++
		case StatusInProgress:
			s.InProgress++
		case StatusDone:
			s.Done++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Done) / float64(s.Total) * 100))
	}
	s.Recent = Recent(tasks, recentLimit)
	return s
}

func RenderStats(s Stats) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Total: %d\n", s.Total))
	b.WriteString(fmt.Sprintf("%s: %d\n", StatusTodo.Label(), s.Todo))
	b.WriteString(fmt.Sprintf("%s: %d\n", StatusInProgress.Label(), s.InProgress))
	b.WriteString(fmt.Sprintf("%s: %d\n", StatusDone.Label(), s.Done))
	b.WriteString(fmt.Sprintf("Completion: %d%%\n", s.CompletionRate))
	if len(s.Recent) > 0 {
		b.WriteString("\nRecent\n")
		for _, t := range s.Recent {
			b.WriteString(fmt.Sprintf("  - %s (%s)\n", taskTitle(t.Title), t.Status.Label()))
		}
	}
	return b.String()
}

// Recent returns up to n tasks, newest first.
func Recent(tasks []Task, n int) []Task {
	out := append([]Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Favorites are the high-priority tasks, in board order.
func Favorites(tasks []Task) []Task {
	out := []Task{}
	for _, t := range tasks {
		if t.Priority == PriorityHigh {
			out = append(out, t)
		}
	}
	SortTasks(out)
	return out
}

// FormatMinutes renders an estimate as 45m, 2h or 1h 30m.
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// SmartDate labels a due date relative to now: Today, Tomorrow, a weekday within the
// coming week, otherwise "Jan 2". Unparseable dates are returned as given.
func SmartDate(due string, now time.Time) string {
	d, ok := parseDate(due, now.Location())
	if !ok {
		return strings.TrimSpace(due)
	}
	days := int(math.Round(d.Sub(startOfDay(now)).Hours() / 24))
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days > 1 && days < 7:
		return d.Weekday().String()
	default:
		return d.Format("Jan 2")
	}
}

// PriorityName is the display form of p ("High").
func PriorityName(p Priority) string {
	return cases.Title(language.English).String(string(p))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseDate(due string, loc *time.Location) (time.Time, bool) {
	due = strings.TrimSpace(due)
	if len(due) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, due[:len(DateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func lenByDate(byDate map[string][]Task) int {
	n := 0
	for _, list := range byDate {
		n += len(list)
	}
	return n
}

func writeTaskSection(b *strings.Builder, title string, tasks []Task, now time.Time, includeDue bool) {
	if len(tasks) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, t := range tasks {
		b.WriteString(fmt.Sprintf("  - %s%s (%s)%s\n", priorityLabel(t.Priority), taskTitle(t.Title), t.Status.Label(), formatDueSuffix(t.DueDate, now, includeDue)))
	}
	b.WriteString("\n")
}

func taskTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func formatDueSuffix(due string, now time.Time, includeDue bool) string {
	if !includeDue || strings.TrimSpace(due) == "" {
		return ""
	}
	return fmt.Sprintf(" (due %s)", SmartDate(due, now))
}

func priorityLabel(p Priority) string {
	if p == "" || p == PriorityMedium {
		return ""
	}
	t := Task{Priority: p}
	return "[" + t.PriorityAbbrev() + "] "
}
