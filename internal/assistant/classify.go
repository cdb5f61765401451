package assistant

import (
	"regexp"
	"strings"
	"time"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

// rule is one entry of the classification table. match returns ok=false to let the next
// rule try.
type rule struct {
	intent Intent
	match  func(text string, now time.Time) (Command, bool)
}

// rules is evaluated top to bottom; the first match decides the intent.
var rules = []rule{
	{IntentCreate, matchCreate},
	{IntentMove, matchMove},
	{IntentEmoji, matchEmoji},
	{IntentUpdate, matchUpdate},
	{IntentDelete, matchDelete},
	{IntentList, matchList},
	{IntentHelp, matchHelp},
}

// Classify interprets one message. It depends only on text and now.
func Classify(text string, now time.Time) Command {
	text = strings.TrimSpace(text)
	for _, r := range rules {
		if cmd, ok := r.match(text, now); ok {
			cmd.Intent = r.intent
			return cmd
		}
	}
	return Command{Intent: IntentChat}
}

var createPattern = regexp.MustCompile(`(?is)^(?:please\s+)?(?:create|add|new)\s+(?:a\s+|an\s+)?(?:new\s+)?(?:task|todo)\b\s*(:|called\b|named\b)?\s*(.*)$`)

var segmentSplit = regexp.MustCompile(`[,;]`)

// leadingTo drops the connector in "add a task to buy milk". An explicit ':' or "called"
// keeps the title verbatim.
var leadingTo = regexp.MustCompile(`(?i)^to\s+`)

func matchCreate(text string, now time.Time) (Command, bool) {
	m := createPattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	cmd := Command{Status: store.StatusTodo, Priority: store.PriorityMedium}
	segments := segmentSplit.Split(m[2], -1)
	title := strings.TrimSpace(segments[0])
	if m[1] == "" {
		title = leadingTo.ReplaceAllString(title, "")
	}
	cmd.Title = trimTitle(title)
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if minutes, ok := ParseDuration(seg); ok {
			cmd.TimeEstimate = &minutes
			continue
		}
		if due, ok := ParseDueDate(seg, now); ok {
			cmd.DueDate = due
			continue
		}
		if p, ok := ParsePriority(seg); ok {
			cmd.Priority = p
			continue
		}
		if st, ok := ParseStatus(seg); ok {
			cmd.Status = st
		}
	}
	return cmd, true
}

// statusWord matches the spellings ParseStatus accepts in free text.
const statusWord = `to[\s_-]?do|open|in[\s_-]?progress|doing|started|done|complete|completed|finished`

var (
	statusOfPattern  = regexp.MustCompile(`(?i)^(?:change|set|update)\s+(?:the\s+)?status\s+(?:of|for|on)\s+(.+)\s+to\s+(.+)$`)
	moveToPattern    = regexp.MustCompile(`(?i)^(?:move|change|put)\s+(.+)\s+(?:to|status)\s+(.+)$`)
	markAsPattern    = regexp.MustCompile(`(?i)^(?:mark|set)\s+(.+)\s+as\s+(.+)$`)
	markBarePattern  = regexp.MustCompile(`(?i)^mark\s+(.+)\s+(` + statusWord + `)[.!]*$`)
	isDonePattern    = regexp.MustCompile(`(?i)^(.+)\s+is\s+(done|complete|completed|finished)[.!]*$`)
	fieldLeadPattern = regexp.MustCompile(`(?i)^(?:the\s+)?(?:time\s+estimate|estimated\s+time|time|duration|estimate|due\s+date|date|deadline|priority|description)\s+(?:of|for|on)\s`)
)

// statusTail strips "the ... column" decorations around a target status.
var statusTail = regexp.MustCompile(`(?i)^(?:the\s+)?(.+?)(?:\s+(?:column|list|lane))?[.!]*$`)

func matchMove(text string, _ time.Time) (Command, bool) {
	for _, p := range []*regexp.Regexp{statusOfPattern, moveToPattern, markAsPattern, markBarePattern, isDonePattern} {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if p == moveToPattern && fieldLeadPattern.MatchString(m[1]) {
			// "change the priority of X to ..." is a field update
			continue
		}
		word := m[2]
		if sm := statusTail.FindStringSubmatch(strings.TrimSpace(word)); sm != nil {
			word = sm[1]
		}
		st, ok := ParseStatus(word)
		if !ok {
			continue
		}
		return Command{Title: cleanTitle(m[1]), Status: st}, true
	}
	return Command{}, false
}

var (
	emojiToPattern       = regexp.MustCompile(`(?i)^(?:add|put|give)\s+(.+?)\s+(?:to|on)\s+(.+)$`)
	emojiTrailingPattern = regexp.MustCompile(`(?i)^(?:add|put|give)\s+(?:(?:to|on)\s+)?(.+)$`)
	emojiWord            = regexp.MustCompile(`(?i)\s*\b(?:an?\s+)?emoji\b\s*`)
)

func matchEmoji(text string, _ time.Time) (Command, bool) {
	if m := emojiToPattern.FindStringSubmatch(text); m != nil {
		a, b := m[1], m[2]
		switch {
		case ContainsEmoji(a):
			if title := cleanTitle(b); title != "" {
				return Command{Emoji: emojiIn(a), Title: title}, true
			}
		case ContainsEmoji(b):
			if title := cleanTitle(emojiWord.ReplaceAllString(a, " ")); title != "" {
				return Command{Emoji: emojiIn(b), Title: title}, true
			}
		}
	}
	if m := emojiTrailingPattern.FindStringSubmatch(text); m != nil {
		body := strings.TrimRight(strings.TrimSpace(m[1]), ".!")
		fields := strings.Fields(body)
		if len(fields) < 2 {
			return Command{}, false
		}
		last := fields[len(fields)-1]
		if emojiIn(last) != last {
			return Command{}, false
		}
		title := cleanTitle(strings.TrimSpace(strings.TrimSuffix(body, last)))
		if title == "" {
			return Command{}, false
		}
		return Command{Emoji: last, Title: title}, true
	}
	return Command{}, false
}

var updatePattern = regexp.MustCompile(`(?i)^(?:change|update|set)\s+(?:the\s+)?(time\s+estimate|estimated\s+time|time|duration|estimate|due\s+date|date|deadline|priority|description)\s+(?:of|for|on)\s+(.+)\s+to\s+(.+)$`)

func matchUpdate(text string, _ time.Time) (Command, bool) {
	m := updatePattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	field, ok := lookupField(m[1])
	if !ok {
		return Command{}, false
	}
	value := strings.TrimSpace(m[3])
	if field != FieldDescription {
		value = trimQuotes(strings.TrimRight(value, ".!?"))
	}
	return Command{Title: cleanTitle(m[2]), Field: field, Value: value}, true
}

var deletePattern = regexp.MustCompile(`(?i)^(?:delete|remove)\s+(?:the\s+)?(?:task\s+)?(.+)$`)

func matchDelete(text string, _ time.Time) (Command, bool) {
	m := deletePattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	title := cleanTitle(m[1])
	if title == "" {
		return Command{}, false
	}
	return Command{Title: title}, true
}

var (
	listWord  = regexp.MustCompile(`(?i)\blist\b`)
	showWord  = regexp.MustCompile(`(?i)\bshow\b`)
	tasksWord = regexp.MustCompile(`(?i)\btasks?\b`)
)

func matchList(text string, _ time.Time) (Command, bool) {
	if listWord.MatchString(text) || (showWord.MatchString(text) && tasksWord.MatchString(text)) {
		return Command{}, true
	}
	return Command{}, false
}

var (
	helpWord     = regexp.MustCompile(`(?i)\bhelp\b`)
	whatCanYouDo = regexp.MustCompile(`(?i)what\s+can\s+you\s+do`)
)

func matchHelp(text string, _ time.Time) (Command, bool) {
	return Command{}, helpWord.MatchString(text) || whatCanYouDo.MatchString(text)
}

var leadingTaskWord = regexp.MustCompile(`(?i)^(?:(?:the|my)\s+)?task\s+`)

// cleanTitle normalizes a title captured from a command: quotes and trailing
// punctuation go, as does a leading "task", "the task" or "my task".
func cleanTitle(s string) string {
	s = trimTitle(s)
	s = leadingTaskWord.ReplaceAllString(s, "")
	return trimTitle(s)
}

func trimTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".!?")
	return strings.TrimSpace(trimQuotes(s))
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range [][2]string{{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"‘", "’"}, {"`", "`"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}
