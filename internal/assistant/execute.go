package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

// Reply is the outcome of one message. Handled is false only for chat, which the caller
// routes elsewhere.
type Reply struct {
	Command Command `json:"command"`
	Handled bool    `json:"handled"`
	Text    string  `json:"text"`
}

// Executor turns messages into at most one store mutation and a reply.
type Executor struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Executor)

// WithClock overrides the time source used for relative dates.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(s store.Store, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{store: s, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const sampleLimit = 3

// Execute classifies text and carries out the command. It never returns an error; every
// failure becomes the reply text.
func (e *Executor) Execute(ctx context.Context, text string) Reply {
	now := e.now()
	cmd := Classify(text, now)
	e.logger.Debug("classified message", zap.String("intent", string(cmd.Intent)), zap.String("title", cmd.Title))

	reply := Reply{Command: cmd, Handled: true}
	switch cmd.Intent {
	case IntentChat:
		reply.Handled = false
	case IntentHelp:
		reply.Text = HelpText
	case IntentCreate:
		reply.Text = e.create(ctx, cmd, now)
	default:
		tasks, err := e.store.List(ctx)
		if err != nil {
			e.logger.Warn("list tasks failed", zap.String("intent", string(cmd.Intent)), zap.Error(err))
			reply.Text = "Failed to load tasks. Please try again."
			return reply
		}
		switch cmd.Intent {
		case IntentList:
			reply.Text = store.RenderChatList(tasks, now)
		case IntentMove:
			reply.Text = e.move(ctx, cmd, tasks)
		case IntentEmoji:
			reply.Text = e.emoji(ctx, cmd, tasks)
		case IntentUpdate:
			reply.Text = e.update(ctx, cmd, tasks, now)
		case IntentDelete:
			reply.Text = e.delete(ctx, cmd, tasks)
		}
	}
	return reply
}

func (e *Executor) create(ctx context.Context, cmd Command, now time.Time) string {
	if strings.TrimSpace(cmd.Title) == "" {
		return `Please give the task a title, e.g. "Create a task called Buy milk".`
	}
	task, err := e.store.Create(ctx, store.CreateInput{
		Title:        cmd.Title,
		Status:       cmd.Status,
		Priority:     cmd.Priority,
		DueDate:      cmd.DueDate,
		TimeEstimate: cmd.TimeEstimate,
	})
	if err != nil {
		return e.storeFailure("create", "", err)
	}

	var details []string
	if task.Status != store.StatusTodo {
		details = append(details, "status "+task.Status.Label())
	}
	if task.Priority != store.PriorityMedium {
		details = append(details, "priority "+store.PriorityName(task.Priority))
	}
	if task.DueDate != "" {
		details = append(details, fmt.Sprintf("due %s (%s)", task.DueDate, FormatSmartDate(task.DueDate, now)))
	}
	if task.TimeEstimate != nil {
		details = append(details, "estimate "+FormatTimeEstimate(*task.TimeEstimate))
	}
	if len(details) == 0 {
		return fmt.Sprintf("Created task %q.", task.Title)
	}
	return fmt.Sprintf("Created task %q with %s.", task.Title, strings.Join(details, ", "))
}

func (e *Executor) move(ctx context.Context, cmd Command, tasks []store.Task) string {
	task, ok := FindTask(cmd.Title, tasks)
	if !ok {
		msg := notFound(cmd.Title)
		if samples := sampleTitles(tasks, sampleLimit); len(samples) > 0 {
			quoted := make([]string, len(samples))
			for i, s := range samples {
				quoted[i] = fmt.Sprintf("%q", s)
			}
			msg += " Your tasks include " + strings.Join(quoted, ", ") + "."
		}
		return msg
	}
	status := cmd.Status
	if _, err := e.store.Update(ctx, task.ID, store.Patch{Status: &status}); err != nil {
		return e.storeFailure("move", task.ID, err)
	}
	return fmt.Sprintf("Moved %q to %s.", task.Title, status.Label())
}

func (e *Executor) emoji(ctx context.Context, cmd Command, tasks []store.Task) string {
	task, ok := FindTask(cmd.Title, tasks)
	if !ok {
		return notFound(cmd.Title)
	}
	if cmd.Emoji == "" {
		return "Please include the emoji to add."
	}
	_, rest := ExtractLeadingEmoji(task.Title)
	title := strings.TrimSpace(cmd.Emoji + " " + rest)
	if _, err := e.store.Update(ctx, task.ID, store.Patch{Title: &title}); err != nil {
		return e.storeFailure("update", task.ID, err)
	}
	return fmt.Sprintf("Updated %q → %q.", task.Title, title)
}

func (e *Executor) update(ctx context.Context, cmd Command, tasks []store.Task, now time.Time) string {
	spec, ok := fieldSpecs[cmd.Field]
	if !ok {
		return fmt.Sprintf("I can't update %q on tasks.", cmd.Field)
	}
	task, ok := FindTask(cmd.Title, tasks)
	if !ok {
		return notFound(cmd.Title)
	}
	patch, display, ok := spec.parse(cmd.Value, now)
	if !ok {
		return fmt.Sprintf("I couldn't understand %q as a %s. Try %s.", cmd.Value, spec.label, spec.format)
	}
	if _, err := e.store.Update(ctx, task.ID, patch); err != nil {
		return e.storeFailure("update", task.ID, err)
	}
	return fmt.Sprintf("Set the %s of %q to %s.", spec.label, task.Title, display)
}

func (e *Executor) delete(ctx context.Context, cmd Command, tasks []store.Task) string {
	task, ok := FindTask(cmd.Title, tasks)
	if !ok {
		return notFound(cmd.Title)
	}
	if err := e.store.Delete(ctx, task.ID); err != nil {
		return e.storeFailure("delete", task.ID, err)
	}
	return fmt.Sprintf("Deleted %q.", task.Title)
}

func (e *Executor) storeFailure(verb, taskID string, err error) string {
	e.logger.Warn("store call failed",
		zap.String("op", verb),
		zap.String("task_id", taskID),
		zap.Error(err),
	)
	return fmt.Sprintf("Failed to %s task. Please try again.", verb)
}

func notFound(title string) string {
	return fmt.Sprintf("I couldn't find a task matching %q.", title)
}

// HelpText is the reply to "help" and "what can you do".
const HelpText = `Here's what I can do:
• Create tasks: "Create a task called Buy milk, 30m, tomorrow, high"
• Move tasks: "Move Buy milk to done" or "Mark Buy milk as in progress"
• Add emoji: "Add 🎯 to Buy milk"
• Update fields: "Set the due date of Buy milk to next friday" (time estimate, due date, priority, description)
• Delete tasks: "Delete Buy milk"
• List tasks: "List my tasks"
Anything else is passed on to the chat assistant.`
