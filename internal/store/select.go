package store

import (
	"fmt"
	"strings"
)

type ListFilter struct {
	Status   string
	Priority string
	Tag      string
	Search   string
}

// FilterTasks keeps the tasks matching every non-empty field of f, preserving order.
func FilterTasks(tasks []Task, f ListFilter) ([]Task, error) {
	var status Status
	if strings.TrimSpace(f.Status) != "" {
		st, ok := ParseStatus(f.Status)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, f.Status)
		}
		status = st
	}
	var priority Priority
	if strings.TrimSpace(f.Priority) != "" {
		p, ok := ParsePriority(f.Priority)
		if !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalid, f.Priority)
		}
		priority = p
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := []Task{}
	for _, t := range tasks {
		if status != "" && t.Status != status {
			continue
		}
		if priority != "" && t.Priority != priority {
			continue
		}
		if f.Tag != "" && !containsString(t.Tags, f.Tag) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// ResolveSelector finds the single task named by an id, id prefix or title.
// Ids win over titles when the selector looks like one; titles are tried exact, then
// prefix, then substring. More than one hit at the deciding stage is a MatchConflictError.
func ResolveSelector(tasks []Task, selector string) (*Task, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("%w: selector is required", ErrInvalid)
	}
	titleStages := []matchStage{
		{"title", titleMatcher(selector, strings.EqualFold)},
		{"title prefix", titleMatcher(selector, strings.HasPrefix)},
		{"title contains", titleMatcher(selector, strings.Contains)},
	}
	idStage := matchStage{"id prefix", idMatcher(selector)}
	var stages []matchStage
	if isLikelyIDSelector(selector) {
		stages = append([]matchStage{idStage}, titleStages...)
	} else {
		stages = append(titleStages, idStage)
	}

	for _, stage := range stages {
		var matches []Task
		for _, t := range tasks {
			if stage.match(t) {
				matches = append(matches, t)
			}
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			match := matches[0]
			return &match, nil
		default:
			return nil, &MatchConflictError{Reason: stage.reason, Matches: matches}
		}
	}
	return nil, ErrNotFound
}

type matchStage struct {
	reason string
	match  func(Task) bool
}

func idMatcher(selector string) func(Task) bool {
	sel := strings.ToUpper(selector)
	return func(t Task) bool {
		id := strings.ToUpper(t.ID)
		return strings.HasPrefix(id, sel) || strings.HasPrefix(strings.TrimPrefix(id, "TSK_"), sel)
	}
}

func titleMatcher(selector string, cmp func(s, sub string) bool) func(Task) bool {
	sel := strings.ToLower(selector)
	selSlug := slugify(selector)
	return func(t Task) bool {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			return false
		}
		return cmp(strings.ToLower(title), sel) || cmp(slugify(title), selSlug)
	}
}

func isLikelyIDSelector(selector string) bool {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return false
	}
	lower := strings.ToLower(selector)
	if strings.HasPrefix(lower, "tsk_") {
		return true
	}
	if len(selector) < 8 {
		return false
	}
	allowed := "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	hasDigit := false
	for _, r := range strings.ToUpper(selector) {
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
		if !strings.ContainsRune(allowed, r) {
			return false
		}
	}
	return hasDigit
}
