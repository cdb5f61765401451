package store

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var summaryNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC) // Thursday

func summaryFixture() []Task {
	est := 90
	return []Task{
		{ID: "1", Title: "Plan sprint", Status: StatusTodo, Priority: PriorityHigh, DueDate: "2026-10-15", Position: 1, CreatedAt: summaryNow.Add(-3 * time.Hour)},
		{ID: "2", Title: "Fix login", Status: StatusInProgress, Priority: PriorityMedium, DueDate: "2026-10-13", TimeEstimate: &est, Position: 2, CreatedAt: summaryNow.Add(-2 * time.Hour)},
		{ID: "3", Title: "Ship v1", Status: StatusDone, Priority: PriorityHigh, DueDate: "2026-10-10", Position: 3, CreatedAt: summaryNow.Add(-1 * time.Hour)},
		{ID: "4", Title: "Read book", Status: StatusTodo, Priority: PriorityLow, DueDate: "2026-10-18", Position: 4, CreatedAt: summaryNow},
	}
}

func titles(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestComputeStats(t *testing.T) {
	got := ComputeStats(summaryFixture())
	if got.Total != 4 || got.Todo != 2 || got.InProgress != 1 || got.Done != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.CompletionRate != 25 {
		t.Fatalf("expected completion 25, got %d", got.CompletionRate)
	}
	if diff := cmp.Diff([]string{"Read book", "Ship v1", "Fix login", "Plan sprint"}, titles(got.Recent)); diff != "" {
		t.Fatalf("recent mismatch (-want +got):\n%s", diff)
	}
	if empty := ComputeStats(nil); empty.CompletionRate != 0 {
		t.Fatalf("expected 0%% for empty collection, got %d", empty.CompletionRate)
	}
}

func TestFavoritesAreHighPriority(t *testing.T) {
	if diff := cmp.Diff([]string{"Plan sprint", "Ship v1"}, titles(Favorites(summaryFixture()))); diff != "" {
		t.Fatalf("favorites mismatch (-want +got):\n%s", diff)
	}
}

func TestDueBuckets(t *testing.T) {
	dueToday, overdue := DueBuckets(summaryFixture(), summaryNow)
	if diff := cmp.Diff([]string{"Plan sprint"}, titles(dueToday)); diff != "" {
		t.Fatalf("due today mismatch (-want +got):\n%s", diff)
	}
	// done tasks are never overdue
	if diff := cmp.Diff([]string{"Fix login"}, titles(overdue)); diff != "" {
		t.Fatalf("overdue mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderAgendaIncludesUpcomingDays(t *testing.T) {
	out := RenderAgenda(summaryFixture(), summaryNow, 7)
	for _, want := range []string{"Overdue", "Fix login", "2026-10-18 (Sun)", "Read book"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected agenda to contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Ship v1") {
		t.Fatalf("done task leaked into agenda:\n%s", out)
	}
}

func TestRenderBoardOmitsEmptyColumns(t *testing.T) {
	out := RenderBoard([]Task{{Title: "Only", Status: StatusInProgress, Priority: PriorityHigh}}, false, false)
	if strings.Contains(out, "To Do") || strings.Contains(out, "Done") {
		t.Fatalf("expected only the in-progress column:\n%s", out)
	}
	if !strings.Contains(out, "In Progress (1)") || !strings.Contains(out, "[H] Only") {
		t.Fatalf("unexpected board:\n%s", out)
	}
}

func TestRenderChatList(t *testing.T) {
	if got := RenderChatList(nil, summaryNow); got != EmptyListMessage {
		t.Fatalf("expected empty message, got %q", got)
	}
	tasks := summaryFixture()[:2]
	out := RenderChatList(tasks, summaryNow)
	if strings.Contains(out, "Done") {
		t.Fatalf("empty group should be omitted:\n%s", out)
	}
	for _, want := range []string{"📝 To Do (1)", "🔨 In Progress (1)", "• 🔴 Plan sprint (due Today)", "• Fix login (due Oct 13, 1h 30m)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestSmartDate(t *testing.T) {
	cases := map[string]string{
		"2026-10-15": "Today",
		"2026-10-16": "Tomorrow",
		"2026-10-19": "Monday",
		"2026-10-30": "Oct 30",
		"2026-10-01": "Oct 1",
		"whenever":   "whenever",
	}
	for in, want := range cases {
		if got := SmartDate(in, summaryNow); got != want {
			t.Fatalf("SmartDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := map[int]string{0: "0m", 45: "45m", 60: "1h", 90: "1h 30m", 150: "2h 30m"}
	for in, want := range cases {
		if got := FormatMinutes(in); got != want {
			t.Fatalf("FormatMinutes(%d) = %q, want %q", in, got, want)
		}
	}
}
