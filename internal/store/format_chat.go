package store

import (
	"fmt"
	"strings"
	"time"
)

const chatMaxChars = 3800

// EmptyListMessage is the list reply when there are no tasks at all.
const EmptyListMessage = "You have no tasks yet. Try \"Create a task called ...\" to add one."

func trimChatOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= chatMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	limit := chatMaxChars - len([]rune(suffix))
	return string(runes[:limit]) + suffix
}

func chatPriorityEmoji(p Priority) string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityLow:
		return "🟡"
	default:
		return ""
	}
}

func chatStatusEmoji(s Status) string {
	switch s {
	case StatusTodo:
		return "📝"
	case StatusInProgress:
		return "🔨"
	case StatusDone:
		return "✅"
	default:
		return ""
	}
}

func cleanTaskTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	return taskTitle(title)
}

func chatTaskLine(t Task, now time.Time) string {
	var b strings.Builder
	b.WriteString("• ")
	if pri := chatPriorityEmoji(t.Priority); pri != "" {
		b.WriteString(pri)
		b.WriteString(" ")
	}
	b.WriteString(cleanTaskTitle(t.Title))
	var details []string
	if t.DueDate != "" {
		details = append(details, "due "+SmartDate(t.DueDate, now))
	}
	if t.TimeEstimate != nil {
		details = append(details, FormatMinutes(*t.TimeEstimate))
	}
	if len(details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(details, ", "))
		b.WriteString(")")
	}
	b.WriteString("\n")
	return b.String()
}

// RenderChatList is the status-grouped task summary used as an assistant reply.
// Groups without tasks are left out.
func RenderChatList(tasks []Task, now time.Time) string {
	if len(tasks) == 0 {
		return EmptyListMessage
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 Your tasks (%d)\n\n", len(tasks)))
	for _, col := range BoardColumns(tasks) {
		if len(col.Tasks) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s (%d)\n", chatStatusEmoji(col.Status), col.Label, len(col.Tasks)))
		for _, t := range col.Tasks {
			b.WriteString(chatTaskLine(t, now))
		}
		b.WriteString("\n")
	}
	return trimChatOutput(b.String())
}
