package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shlokDS16/flow-state-studio/internal/assistant"
	"github.com/shlokDS16/flow-state-studio/internal/config"
	"github.com/shlokDS16/flow-state-studio/internal/store"
)

var timeNow = time.Now

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the workspace and a default config file",
		Args:  exactArgs(0, "init"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.openStore(); err != nil {
				return err
			}
			path := a.gf.Config
			if path == "" {
				path = config.DefaultPath(a.cfg.Store.Root)
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				// keys stay in the environment; the provider is picked from them on load
				fresh := *a.cfg
				if fresh.LLM.APIKey != "" {
					fresh.LLM.APIKey = ""
					fresh.LLM.Provider = ""
				}
				if err := fresh.Save(path); err != nil {
					return err
				}
			}
			a.info("Initialized flowstate at %s\n", a.cfg.Store.Root)
			return nil
		},
	}
}

// parseDue accepts YYYY-MM-DD or any phrase the assistant understands ("tomorrow", "next fri").
func parseDue(s string, now time.Time) (string, error) {
	due, ok := assistant.ParseDueDate(s, now)
	if !ok {
		return "", usagef("cannot understand due date %q (try YYYY-MM-DD, today, tomorrow, next friday)", s)
	}
	return due, nil
}

func parseEstimate(s string) (int, error) {
	minutes, ok := assistant.ParseDuration(s)
	if !ok {
		return 0, usagef("cannot understand estimate %q (try 30m, 2h or 1h 30m)", s)
	}
	return minutes, nil
}

func parsePriority(s string) (store.Priority, error) {
	p, ok := store.ParsePriority(s)
	if !ok {
		return "", usagef("unknown priority %q (low|medium|high, or personal|work|urgent)", s)
	}
	return p, nil
}

func parseStatus(s string) (store.Status, error) {
	st, ok := store.ParseStatus(s)
	if !ok {
		return "", usagef("unknown status %q (todo|in_progress|done)", s)
	}
	return st, nil
}

func (a *app) addCmd() *cobra.Command {
	var (
		status, priority, due, est, desc string
		tags                             []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  minArgs(1, `add "<title>" [--status todo] [--priority high] [--due tomorrow] [--estimate 30m]`),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := timeNow()
			in := store.CreateInput{
				Title:       strings.Join(args, " "),
				Description: desc,
				Tags:        tags,
			}
			var err error
			if status != "" {
				if in.Status, err = parseStatus(status); err != nil {
					return err
				}
			}
			if priority != "" {
				if in.Priority, err = parsePriority(priority); err != nil {
					return err
				}
			}
			if due != "" {
				if in.DueDate, err = parseDue(due, now); err != nil {
					return err
				}
			}
			if est != "" {
				minutes, err := parseEstimate(est)
				if err != nil {
					return err
				}
				in.TimeEstimate = &minutes
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			task, err := s.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			return a.printTask(task, summaryLine(task, now))
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "Status (todo|in_progress|done)")
	f.StringVar(&priority, "priority", "", "Priority (low|medium|high, or personal|work|urgent)")
	f.StringVar(&due, "due", "", "Due date (YYYY-MM-DD, today, tomorrow, next <weekday>, in N days)")
	f.StringVar(&est, "estimate", "", "Time estimate (30m, 2h, 1h 30m)")
	f.StringVar(&desc, "desc", "", "Description")
	f.StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var filter store.ListFilter
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Args:    exactArgs(0, "ls [--status s] [--priority p] [--tag t] [--search q]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tasks, err := a.loadTasks(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err = store.FilterTasks(tasks, filter)
			if err != nil {
				return fmt.Errorf("ls: %w", err)
			}
			return a.printTasks(tasks)
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Status, "status", "", "Status (todo|in_progress|done)")
	f.StringVar(&filter.Priority, "priority", "", "Priority (low|medium|high, or personal|work|urgent)")
	f.StringVar(&filter.Tag, "tag", "", "Filter by tag")
	f.StringVar(&filter.Search, "search", "", "Search title and description")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id-or-title>",
		Short: "Show one task",
		Args:  minArgs(1, "show <id-or-title>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, task, err := a.resolve(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}
			return a.printTask(task, task.RenderHuman())
		},
	}
}

func (a *app) moveCmd() *cobra.Command {
	var position int
	cmd := &cobra.Command{
		Use:     "mv <id-or-title> <status>",
		Aliases: []string{"move"},
		Short:   "Move a task to another column",
		Args:    exactArgs(2, "mv <id-or-title> <status> [--position n]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			p := store.Patch{Status: &status}
			if cmd.Flags().Changed("position") {
				p.Position = &position
			}
			return a.patch(cmd, "mv", args[0], p, func(t *store.Task) string {
				return fmt.Sprintf("Moved %s -> %s", t.ID, t.Status)
			})
		},
	}
	cmd.Flags().IntVar(&position, "position", 0, "Position within the column")
	return cmd
}

func (a *app) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id-or-title>",
		Short: "Mark a task done",
		Args:  minArgs(1, "done <id-or-title>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := store.StatusDone
			return a.patch(cmd, "done", strings.Join(args, " "), store.Patch{Status: &status}, func(t *store.Task) string {
				return fmt.Sprintf("Done %s", t.ID)
			})
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id-or-title>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    minArgs(1, "rm <id-or-title>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, task, err := a.resolve(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("rm: %w", err)
			}
			if err := s.Delete(cmd.Context(), task.ID); err != nil {
				return fmt.Errorf("rm: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"deleted": task.ID})
			}
			a.info("Deleted %s %s\n", task.ID, task.Title)
			return nil
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var (
		title, priority, due, est, desc string
		tags                            []string
		clearDue, clearEst              bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id-or-title>",
		Short: "Change fields of a task",
		Args:  minArgs(1, "edit <id-or-title> [--title t] [--priority p] [--due d] [--estimate e] [--desc d] [--tag t]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := timeNow()
			flags := cmd.Flags()
			var p store.Patch
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("priority") {
				pr, err := parsePriority(priority)
				if err != nil {
					return err
				}
				p.Priority = &pr
			}
			if flags.Changed("due") {
				d, err := parseDue(due, now)
				if err != nil {
					return err
				}
				p.DueDate = &d
			}
			if flags.Changed("estimate") {
				minutes, err := parseEstimate(est)
				if err != nil {
					return err
				}
				p.TimeEstimate = &minutes
			}
			if flags.Changed("desc") {
				p.Description = &desc
			}
			if flags.Changed("tag") {
				p.Tags = &tags
			}
			p.ClearDueDate = clearDue
			p.ClearTimeEstimate = clearEst
			if p.Empty() {
				return usagef("edit: nothing to change")
			}
			return a.patch(cmd, "edit", strings.Join(args, " "), p, func(t *store.Task) string {
				return summaryLine(t, now)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "New title")
	f.StringVar(&priority, "priority", "", "Priority (low|medium|high, or personal|work|urgent)")
	f.StringVar(&due, "due", "", "Due date")
	f.StringVar(&est, "estimate", "", "Time estimate")
	f.StringVar(&desc, "desc", "", "Description")
	f.StringSliceVar(&tags, "tag", nil, "Replace tags (repeatable)")
	f.BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	f.BoolVar(&clearEst, "clear-estimate", false, "Remove the time estimate")
	return cmd
}

// patch resolves selector, applies p and prints the result.
func (a *app) patch(cmd *cobra.Command, name, selector string, p store.Patch, human func(*store.Task) string) error {
	s, task, err := a.resolve(cmd.Context(), selector)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	updated, err := s.Update(cmd.Context(), task.ID, p)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return a.printTask(updated, human(updated))
}
