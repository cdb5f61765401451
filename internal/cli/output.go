package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

func (a *app) writeJSON(payload any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func (a *app) info(format string, args ...any) {
	if a.gf.Quiet {
		return
	}
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *app) printTasks(tasks []store.Task) error {
	if a.gf.JSON {
		if tasks == nil {
			tasks = []store.Task{}
		}
		return a.writeJSON(map[string]any{"tasks": tasks})
	}
	if a.gf.Plain {
		fmt.Fprintln(a.stdout, "ID\tST\tPRI\tDUE\tEST\tTITLE")
		for _, t := range tasks {
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.StatusAbbrev(), t.PriorityAbbrev(), orDash(t.DueDate), estimate(t), t.Title)
		}
		return nil
	}
	// Table output
	w := tabwriter.NewWriter(a.stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tST\tPRI\tDUE\tEST\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.StatusAbbrev(), t.PriorityAbbrev(), orDash(t.DueDate), estimate(t), t.Title)
	}
	return w.Flush()
}

func (a *app) printTask(t *store.Task, human string) error {
	if a.gf.JSON {
		return a.writeJSON(map[string]any{"task": t})
	}
	if !a.gf.Quiet {
		fmt.Fprintln(a.stdout, human)
	}
	return nil
}

// heading styles a section title for terminals. Non-terminal writers get plain text
// since the renderer detects the color profile from the writer.
func (a *app) heading(title string) string {
	if a.gf.Plain || a.gf.ASCII {
		return title
	}
	style := lipgloss.NewRenderer(a.stdout).NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	return style.Render(title)
}

// renderReply formats an assistant reply as Markdown when writing to a terminal.
func (a *app) renderReply(text string) string {
	if a.gf.Plain || !isTerminal(a.stdout) {
		return text
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func estimate(t store.Task) string {
	if t.TimeEstimate == nil {
		return "-"
	}
	return store.FormatMinutes(*t.TimeEstimate)
}

func summaryLine(t *store.Task, now time.Time) string {
	var parts []string
	parts = append(parts, t.Status.Label(), store.PriorityName(t.Priority))
	if t.DueDate != "" {
		parts = append(parts, "due "+store.SmartDate(t.DueDate, now))
	}
	if t.TimeEstimate != nil {
		parts = append(parts, store.FormatMinutes(*t.TimeEstimate))
	}
	return fmt.Sprintf("%s [%s] %s", t.ID, strings.Join(parts, ", "), t.Title)
}
