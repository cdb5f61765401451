package assistant

import (
	"strings"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

// FindTask resolves a title fragment against tasks. Matching is case-insensitive and
// tries, in order: exact title, title containing query, and title containing query with
// the leading emoji of both removed. Within a stage the first task in collection order
// wins; several hits are not reported as ambiguous.
func FindTask(query string, tasks []store.Task) (store.Task, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return store.Task{}, false
	}
	for _, t := range tasks {
		if strings.ToLower(strings.TrimSpace(t.Title)) == q {
			return t, true
		}
	}
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), q) {
			return t, true
		}
	}
	_, bareQuery := ExtractLeadingEmoji(q)
	if bareQuery == "" {
		return store.Task{}, false
	}
	for _, t := range tasks {
		_, bareTitle := ExtractLeadingEmoji(strings.ToLower(t.Title))
		if strings.Contains(bareTitle, bareQuery) {
			return t, true
		}
	}
	return store.Task{}, false
}

// sampleTitles returns up to n task titles for "did you mean" hints.
func sampleTitles(tasks []store.Task, n int) []string {
	out := make([]string, 0, n)
	for _, t := range tasks {
		if len(out) == n {
			break
		}
		out = append(out, t.Title)
	}
	return out
}
