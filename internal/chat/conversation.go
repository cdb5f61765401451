package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/shlokDS16/flow-state-studio/internal/assistant"
	"github.com/shlokDS16/flow-state-studio/internal/store"
)

// NoCompleterReply answers chat messages when no provider is configured.
const NoCompleterReply = "I can only manage tasks right now. Try \"help\" to see what I understand."

// ErrorReply replaces a completion that failed.
const ErrorReply = "Sorry, I encountered an error. Please try again."

const defaultMaxHistory = 40

var errEmptyCompletion = errors.New("completion returned no content")

// Conversation is one chat session. Send is serialized so a session never runs two
// messages at once.
type Conversation struct {
	ID string

	mu         sync.Mutex
	history    []Message
	exec       *assistant.Executor
	store      store.Store
	completer  Completer
	logger     *zap.Logger
	now        func() time.Time
	maxHistory int
}

// NewConversation wires a session. completer may be nil.
func NewConversation(exec *assistant.Executor, s store.Store, completer Completer, logger *zap.Logger) *Conversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Conversation{
		ID:         id,
		exec:       exec,
		store:      s,
		completer:  completer,
		logger:     logger.With(zap.String("session_id", id)),
		now:        time.Now,
		maxHistory: defaultMaxHistory,
	}
}

// Send records text, answers it and returns the assistant message. onDelta, when set,
// receives the reply as it is produced; concatenated deltas equal the returned content.
func (c *Conversation) Send(ctx context.Context, text string, onDelta func(string)) Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	emit := func(s string) {
		if onDelta != nil && s != "" {
			onDelta(s)
		}
	}

	c.append(Message{Role: RoleUser, Content: text, Time: c.now()})

	reply := c.exec.Execute(ctx, text)
	var content string
	switch {
	case reply.Handled:
		content = reply.Text
		emit(content)
	case c.completer == nil:
		content = NoCompleterReply
		emit(content)
	default:
		content = c.complete(ctx, emit)
	}

	msg := Message{Role: RoleAssistant, Content: content, Intent: string(reply.Command.Intent), Time: c.now()}
	c.append(msg)
	return msg
}

func (c *Conversation) complete(ctx context.Context, emit func(string)) string {
	tasks, err := c.store.List(ctx)
	if err != nil {
		c.logger.Warn("task snapshot failed", zap.Error(err))
		tasks = nil
	}
	req := CompletionRequest{Messages: c.snapshotHistory(), Tasks: Snapshot(tasks)}

	start := time.Now()
	deltas, errs := c.completer.Stream(ctx, req)
	var b strings.Builder
	for d := range deltas {
		b.WriteString(d)
		emit(d)
	}
	err = <-errs
	if err == nil && b.Len() == 0 {
		err = errEmptyCompletion
	}
	if err != nil {
		c.logger.Error("completion failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		if b.Len() == 0 {
			emit(ErrorReply)
			return ErrorReply
		}
		suffix := "\n\n" + ErrorReply
		emit(suffix)
		return b.String() + suffix
	}
	c.logger.Debug("completion finished", zap.Duration("elapsed", time.Since(start)), zap.Int("chars", b.Len()))
	return b.String()
}

func (c *Conversation) append(m Message) {
	c.history = append(c.history, m)
	if over := len(c.history) - c.maxHistory; over > 0 {
		c.history = append([]Message(nil), c.history[over:]...)
	}
}

func (c *Conversation) snapshotHistory() []Message {
	return append([]Message(nil), c.history...)
}

// History returns a copy of the messages so far.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotHistory()
}

// DefaultMaxSessions is the session cap used when NewSessions gets a non-positive limit.
const DefaultMaxSessions = 256

// Sessions keeps one Conversation per session id. At most limit conversations are kept;
// starting one more drops the least recently used.
type Sessions struct {
	mu    sync.Mutex
	convs *lru.Cache[string, *Conversation]
	newFn func() *Conversation
}

func NewSessions(limit int, newFn func() *Conversation) *Sessions {
	if limit < 1 {
		limit = DefaultMaxSessions
	}
	// lru.New only fails for a non-positive size.
	convs, _ := lru.New[string, *Conversation](limit)
	return &Sessions{convs: convs, newFn: newFn}
}

// Get returns the conversation for id, starting a new one when id is empty, unknown or
// already evicted.
func (s *Sessions) Get(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.convs.Get(id); ok {
		return conv
	}
	conv := s.newFn()
	s.convs.Add(conv.ID, conv)
	return conv
}

func (s *Sessions) Len() int {
	return s.convs.Len()
}
