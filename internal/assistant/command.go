package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

type Intent string

const (
	IntentCreate Intent = "create"
	IntentMove   Intent = "move"
	IntentDelete Intent = "delete"
	IntentUpdate Intent = "update"
	IntentEmoji  Intent = "emoji"
	IntentList   Intent = "list"
	IntentHelp   Intent = "help"
	IntentChat   Intent = "chat"
)

// Command is the interpretation of one message. Only the fields of its Intent are set:
//
//	create: Title, Status, Priority, DueDate, TimeEstimate
//	move:   Title, Status
//	delete: Title
//	update: Title, Field, Value
//	emoji:  Title, Emoji
type Command struct {
	Intent       Intent         `json:"intent"`
	Title        string         `json:"title,omitempty"`
	Status       store.Status   `json:"status,omitempty"`
	Priority     store.Priority `json:"priority,omitempty"`
	DueDate      string         `json:"due_date,omitempty"`
	TimeEstimate *int           `json:"time_estimate,omitempty"`
	Field        Field          `json:"field,omitempty"`
	Value        string         `json:"value,omitempty"`
	Emoji        string         `json:"emoji,omitempty"`
}

// Field is an updatable task attribute addressed by "change the <field> of ...".
type Field string

const (
	FieldTimeEstimate Field = "time_estimate"
	FieldDueDate      Field = "due_date"
	FieldPriority     Field = "priority"
	FieldDescription  Field = "description"
)

// fieldSpec binds a Field to the normalizer for its raw value and the patch it produces.
type fieldSpec struct {
	label string
	// format is shown when the raw value does not parse.
	format string
	parse  func(value string, now time.Time) (store.Patch, string, bool)
}

var fieldSpecs = map[Field]fieldSpec{
	FieldTimeEstimate: {
		label:  "time estimate",
		format: `a duration like "30m", "2h" or "1h 30m"`,
		parse: func(value string, _ time.Time) (store.Patch, string, bool) {
			minutes, ok := ParseDuration(value)
			if !ok {
				return store.Patch{}, "", false
			}
			return store.Patch{TimeEstimate: &minutes}, FormatTimeEstimate(minutes), true
		},
	},
	FieldDueDate: {
		label:  "due date",
		format: `a date like "today", "tomorrow", "next friday", "in 3 days" or "2026-01-31"`,
		parse: func(value string, now time.Time) (store.Patch, string, bool) {
			due, ok := ParseDueDate(value, now)
			if !ok {
				return store.Patch{}, "", false
			}
			return store.Patch{DueDate: &due}, fmt.Sprintf("%s (%s)", due, FormatSmartDate(due, now)), true
		},
	},
	FieldPriority: {
		label:  "priority",
		format: `one of "high" ("urgent"), "medium" ("work") or "low" ("personal")`,
		parse: func(value string, _ time.Time) (store.Patch, string, bool) {
			p, ok := ParsePriority(value)
			if !ok {
				return store.Patch{}, "", false
			}
			return store.Patch{Priority: &p}, store.PriorityName(p), true
		},
	},
	FieldDescription: {
		label:  "description",
		format: "some text",
		parse: func(value string, _ time.Time) (store.Patch, string, bool) {
			value = strings.TrimSpace(value)
			if value == "" {
				return store.Patch{}, "", false
			}
			return store.Patch{Description: &value}, fmt.Sprintf("%q", value), true
		},
	},
}

// fieldNames maps the words users type to a Field.
var fieldNames = map[string]Field{
	"time":           FieldTimeEstimate,
	"time estimate":  FieldTimeEstimate,
	"estimated time": FieldTimeEstimate,
	"duration":       FieldTimeEstimate,
	"estimate":       FieldTimeEstimate,
	"due date":       FieldDueDate,
	"date":           FieldDueDate,
	"deadline":       FieldDueDate,
	"priority":       FieldPriority,
	"description":    FieldDescription,
}

func lookupField(name string) (Field, bool) {
	f, ok := fieldNames[strings.ToLower(strings.Join(strings.Fields(name), " "))]
	return f, ok
}

func (f Field) Label() string {
	if spec, ok := fieldSpecs[f]; ok {
		return spec.label
	}
	return string(f)
}
