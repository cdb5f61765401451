package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Intent  string    `json:"intent,omitempty"`
	Time    time.Time `json:"time"`
}

// TaskSnapshot is the part of a task the completion model gets to see.
type TaskSnapshot struct {
	Title        string `json:"title"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	DueDate      string `json:"due_date,omitempty"`
	TimeEstimate *int   `json:"time_estimate,omitempty"`
}

func Snapshot(tasks []store.Task) []TaskSnapshot {
	out := make([]TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskSnapshot{
			Title:        t.Title,
			Status:       string(t.Status),
			Priority:     string(t.Priority),
			DueDate:      t.DueDate,
			TimeEstimate: t.TimeEstimate,
		})
	}
	return out
}

type CompletionRequest struct {
	Messages []Message
	Tasks    []TaskSnapshot
}

// Completer streams a reply for the conversation so far. Both channels are closed when
// the stream ends; the error channel carries at most one error.
type Completer interface {
	Stream(ctx context.Context, req CompletionRequest) (<-chan string, <-chan error)
}

const basePrompt = `You are the assistant inside flowstate, a personal task board with three columns: todo, in_progress and done.
Help the user plan, prioritise and break down their work. Keep answers short and practical.
You cannot change tasks yourself. When the user wants a change, tell them the command to type, for example:
"Create a task called <title>, 30m, tomorrow, high", "Move <title> to done", "Add 🎯 to <title>",
"Set the due date of <title> to next friday", "Delete <title>" or "List my tasks".`

// SystemPrompt is basePrompt followed by the current tasks.
func SystemPrompt(tasks []TaskSnapshot) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nCurrent tasks:\n")
	if len(tasks) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}
	for _, t := range tasks {
		b.WriteString(fmt.Sprintf("- %s [%s, %s priority", t.Title, t.Status, t.Priority))
		if t.DueDate != "" {
			b.WriteString(", due " + t.DueDate)
		}
		if t.TimeEstimate != nil {
			b.WriteString(", estimate " + store.FormatMinutes(*t.TimeEstimate))
		}
		b.WriteString("]\n")
	}
	return b.String()
}
