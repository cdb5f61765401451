package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

func tasksTitled(titles ...string) []store.Task {
	out := make([]store.Task, len(titles))
	for i, title := range titles {
		out[i] = store.Task{ID: title, Title: title, Status: store.StatusTodo, Priority: store.PriorityMedium}
	}
	return out
}

func TestFindTaskPrefersExactMatch(t *testing.T) {
	for _, tasks := range [][]store.Task{
		tasksTitled("Buy milk", "🛒 Buy milk and eggs"),
		tasksTitled("🛒 Buy milk and eggs", "Buy milk"),
	} {
		got, ok := FindTask("buy MILK", tasks)
		require.True(t, ok)
		assert.Equal(t, "Buy milk", got.Title)
	}
}

func TestFindTaskSubstringThenEmojiStripped(t *testing.T) {
	tasks := tasksTitled("🏃 Morning jog", "Evening walk")

	got, ok := FindTask("Morning jog", tasks)
	require.True(t, ok)
	assert.Equal(t, "🏃 Morning jog", got.Title)

	got, ok = FindTask("🎯 Morning jog", tasks)
	require.True(t, ok)
	assert.Equal(t, "🏃 Morning jog", got.Title)
}

func TestFindTaskFirstHitWins(t *testing.T) {
	got, ok := FindTask("report", tasksTitled("Write report", "Review report"))
	require.True(t, ok)
	assert.Equal(t, "Write report", got.Title)
}

func TestFindTaskMisses(t *testing.T) {
	_, ok := FindTask("", tasksTitled("Anything"))
	assert.False(t, ok)
	_, ok = FindTask("  ", tasksTitled("Anything"))
	assert.False(t, ok)
	_, ok = FindTask("walk the dog", tasksTitled("Buy milk"))
	assert.False(t, ok)
	_, ok = FindTask("Buy milk", nil)
	assert.False(t, ok)
}
