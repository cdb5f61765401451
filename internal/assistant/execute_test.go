package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

type updateCall struct {
	ID    string
	Patch store.Patch
}

// recordingStore serves a fixed task list and records every mutation.
type recordingStore struct {
	tasks   []store.Task
	listErr error
	mutErr  error

	created []store.CreateInput
	updated []updateCall
	deleted []string
}

func (s *recordingStore) List(context.Context) ([]store.Task, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]store.Task(nil), s.tasks...), nil
}

func (s *recordingStore) Create(_ context.Context, in store.CreateInput) (*store.Task, error) {
	s.created = append(s.created, in)
	if s.mutErr != nil {
		return nil, s.mutErr
	}
	return &store.Task{ID: "tsk_new", Title: in.Title, Status: in.Status, Priority: in.Priority,
		DueDate: in.DueDate, TimeEstimate: in.TimeEstimate}, nil
}

func (s *recordingStore) Update(_ context.Context, id string, p store.Patch) (*store.Task, error) {
	s.updated = append(s.updated, updateCall{ID: id, Patch: p})
	if s.mutErr != nil {
		return nil, s.mutErr
	}
	return &store.Task{ID: id}, nil
}

func (s *recordingStore) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.mutErr
}

func (s *recordingStore) mutations() int {
	return len(s.created) + len(s.updated) + len(s.deleted)
}

func newTestExecutor(s store.Store) *Executor {
	return NewExecutor(s, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
}

func TestExecuteCreateRoundTrip(t *testing.T) {
	s := &recordingStore{}
	reply := newTestExecutor(s).Execute(context.Background(), "Create task: 🏃 Morning jog, 30m, tomorrow, work")

	require.Len(t, s.created, 1)
	want := store.CreateInput{Title: "🏃 Morning jog", Status: store.StatusTodo, Priority: store.PriorityMedium,
		DueDate: "2026-10-16", TimeEstimate: intPtr(30)}
	if diff := cmp.Diff(want, s.created[0]); diff != "" {
		t.Fatalf("create input mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, reply.Handled)
	assert.Equal(t, IntentCreate, reply.Command.Intent)
	assert.Equal(t, `Created task "🏃 Morning jog" with due 2026-10-16 (Tomorrow), estimate 30m.`, reply.Text)
}

func TestExecuteCreateDefaultsOnly(t *testing.T) {
	s := &recordingStore{}
	reply := newTestExecutor(s).Execute(context.Background(), "Create a task called Buy milk")
	require.Len(t, s.created, 1)
	assert.Equal(t, `Created task "Buy milk".`, reply.Text)
}

func TestExecuteCreateWithoutTitle(t *testing.T) {
	s := &recordingStore{}
	reply := newTestExecutor(s).Execute(context.Background(), "add task")
	assert.Zero(t, s.mutations())
	assert.Contains(t, reply.Text, "Please give the task a title")
}

func TestExecuteMoveResolvesEmojiTitle(t *testing.T) {
	s := &recordingStore{tasks: []store.Task{
		{ID: "t1", Title: "🏃 Morning jog", Status: store.StatusTodo},
		{ID: "t2", Title: "Buy milk", Status: store.StatusTodo},
	}}
	reply := newTestExecutor(s).Execute(context.Background(), "Move Morning jog to done")

	require.Len(t, s.updated, 1)
	assert.Zero(t, len(s.created)+len(s.deleted))
	done := store.StatusDone
	if diff := cmp.Diff(updateCall{ID: "t1", Patch: store.Patch{Status: &done}}, s.updated[0]); diff != "" {
		t.Fatalf("update mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, `Moved "🏃 Morning jog" to Done.`, reply.Text)
}

func TestExecuteMoveNotFoundListsSamples(t *testing.T) {
	s := &recordingStore{tasks: tasksTitled("One", "Two", "Three", "Four")}
	reply := newTestExecutor(s).Execute(context.Background(), "Move Five to done")

	assert.Zero(t, s.mutations())
	assert.Equal(t, `I couldn't find a task matching "Five". Your tasks include "One", "Two", "Three".`, reply.Text)
}

func TestExecuteDeleteMissIssuesNoCalls(t *testing.T) {
	for _, tasks := range [][]store.Task{nil, tasksTitled("Buy milk")} {
		s := &recordingStore{tasks: tasks}
		reply := newTestExecutor(s).Execute(context.Background(), "Delete Nonexistent Task")
		assert.Zero(t, s.mutations())
		assert.Equal(t, `I couldn't find a task matching "Nonexistent Task".`, reply.Text)
	}
}

func TestExecuteDelete(t *testing.T) {
	s := &recordingStore{tasks: tasksTitled("Buy milk")}
	reply := newTestExecutor(s).Execute(context.Background(), "delete buy milk")
	assert.Equal(t, []string{"Buy milk"}, s.deleted)
	assert.Equal(t, `Deleted "Buy milk".`, reply.Text)
}

func TestExecuteHelpIssuesNoCalls(t *testing.T) {
	for _, tasks := range [][]store.Task{nil, tasksTitled("What can you do")} {
		s := &recordingStore{tasks: tasks}
		reply := newTestExecutor(s).Execute(context.Background(), "What can you do?")
		assert.Zero(t, s.mutations())
		assert.Equal(t, IntentHelp, reply.Command.Intent)
		assert.Equal(t, HelpText, reply.Text)
	}
}

func TestExecuteEmojiReplacesLeadingEmoji(t *testing.T) {
	s := &recordingStore{tasks: []store.Task{{ID: "t1", Title: "🏃 Morning jog"}}}
	reply := newTestExecutor(s).Execute(context.Background(), "Add 🎯 to Morning jog")

	require.Len(t, s.updated, 1)
	require.NotNil(t, s.updated[0].Patch.Title)
	assert.Equal(t, "🎯 Morning jog", *s.updated[0].Patch.Title)
	assert.Equal(t, `Updated "🏃 Morning jog" → "🎯 Morning jog".`, reply.Text)
}

func TestExecuteEmojiKeepsLeadingSymbol(t *testing.T) {
	s := &recordingStore{tasks: []store.Task{{ID: "t1", Title: "\u2318 Shortcuts"}}}
	newTestExecutor(s).Execute(context.Background(), "Add 🎯 to Shortcuts")

	require.Len(t, s.updated, 1)
	require.NotNil(t, s.updated[0].Patch.Title)
	assert.Equal(t, "🎯 \u2318 Shortcuts", *s.updated[0].Patch.Title)
}

func TestExecuteUpdateFields(t *testing.T) {
	cases := []struct {
		in    string
		patch func() store.Patch
		text  string
	}{
		{
			in:    "Set the time estimate of Buy milk to 1.5 hours",
			patch: func() store.Patch { return store.Patch{TimeEstimate: intPtr(90)} },
			text:  `Set the time estimate of "Buy milk" to 1h 30m.`,
		},
		{
			in: "change the due date of Buy milk to next friday",
			patch: func() store.Patch {
				due := "2026-10-16"
				return store.Patch{DueDate: &due}
			},
			text: `Set the due date of "Buy milk" to 2026-10-16 (Tomorrow).`,
		},
		{
			in: "change the priority of Buy milk to urgent",
			patch: func() store.Patch {
				p := store.PriorityHigh
				return store.Patch{Priority: &p}
			},
			text: `Set the priority of "Buy milk" to High.`,
		},
		{
			in: "set the description of buy milk to semi-skimmed",
			patch: func() store.Patch {
				d := "semi-skimmed"
				return store.Patch{Description: &d}
			},
			text: `Set the description of "Buy milk" to "semi-skimmed".`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			s := &recordingStore{tasks: tasksTitled("Buy milk")}
			reply := newTestExecutor(s).Execute(context.Background(), tc.in)
			require.Len(t, s.updated, 1)
			if diff := cmp.Diff(updateCall{ID: "Buy milk", Patch: tc.patch()}, s.updated[0]); diff != "" {
				t.Fatalf("update mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.text, reply.Text)
		})
	}
}

func TestExecuteUpdateRejectsUnparseableValue(t *testing.T) {
	s := &recordingStore{tasks: tasksTitled("Buy milk")}
	exec := newTestExecutor(s)

	reply := exec.Execute(context.Background(), "Set the time estimate of Buy milk to soon")
	assert.Zero(t, s.mutations())
	assert.Contains(t, reply.Text, `I couldn't understand "soon" as a time estimate`)
	assert.Contains(t, reply.Text, `"1h 30m"`)

	reply = exec.Execute(context.Background(), "set the deadline for Buy milk to whenever")
	assert.Zero(t, s.mutations())
	assert.Contains(t, reply.Text, "as a due date")
}

func TestExecuteUpdateRejectsOutOfRangeValue(t *testing.T) {
	s := &recordingStore{tasks: tasksTitled("Buy milk")}
	exec := newTestExecutor(s)

	reply := exec.Execute(context.Background(), "Set the time estimate of Buy milk to 99999999999999999999h")
	assert.Zero(t, s.mutations())
	assert.Contains(t, reply.Text, "as a time estimate")

	reply = exec.Execute(context.Background(), "Set the due date of Buy milk to in 99999999 days")
	assert.Zero(t, s.mutations())
	assert.Contains(t, reply.Text, "as a due date")
}

func TestExecuteStoreFailureIsLoggedAndGeneric(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := &recordingStore{tasks: tasksTitled("Buy milk"), mutErr: errors.New("connection reset")}
	exec := NewExecutor(s, zap.New(core), WithClock(func() time.Time { return fixedNow }))

	cases := map[string]string{
		"Create a task called Walk dog":       "Failed to create task. Please try again.",
		"Move Buy milk to done":               "Failed to move task. Please try again.",
		"Set the priority of Buy milk to low": "Failed to update task. Please try again.",
		"Delete Buy milk":                     "Failed to delete task. Please try again.",
	}
	for in, want := range cases {
		assert.Equal(t, want, exec.Execute(context.Background(), in).Text, in)
	}
	require.Equal(t, len(cases), logs.FilterMessage("store call failed").Len())
	assert.Equal(t, "connection reset", logs.All()[0].ContextMap()["error"])
}

func TestExecuteListFailure(t *testing.T) {
	s := &recordingStore{listErr: errors.New("disk gone")}
	reply := newTestExecutor(s).Execute(context.Background(), "list")
	assert.Equal(t, "Failed to load tasks. Please try again.", reply.Text)
}

func TestExecuteList(t *testing.T) {
	s := &recordingStore{}
	reply := newTestExecutor(s).Execute(context.Background(), "show my tasks")
	assert.Equal(t, store.EmptyListMessage, reply.Text)

	s.tasks = tasksTitled("Buy milk")
	reply = newTestExecutor(s).Execute(context.Background(), "list")
	assert.Equal(t, store.RenderChatList(s.tasks, fixedNow), reply.Text)
	assert.Zero(t, s.mutations())
}

func TestExecuteChatIsNotHandled(t *testing.T) {
	s := &recordingStore{}
	reply := newTestExecutor(s).Execute(context.Background(), "How should I plan my week?")
	assert.False(t, reply.Handled)
	assert.Equal(t, IntentChat, reply.Command.Intent)
	assert.Empty(t, reply.Text)
	assert.Zero(t, s.mutations())
}
