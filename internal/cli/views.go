package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

func (a *app) boardCmd() *cobra.Command {
	var openOnly bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped by column",
		Args:  exactArgs(0, "board [--open]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tasks, err := a.loadTasks(cmd.Context())
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"columns": store.BoardColumns(tasks)})
			}
			fmt.Fprintln(a.stdout, a.heading("Board"))
			fmt.Fprint(a.stdout, store.RenderBoard(tasks, a.gf.ASCII, openOnly))
			return nil
		},
	}
	cmd.Flags().BoolVar(&openOnly, "open", false, "Hide the done column")
	return cmd
}

func (a *app) todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show tasks due today and overdue",
		Args:  exactArgs(0, "today"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tasks, err := a.loadTasks(cmd.Context())
			if err != nil {
				return err
			}
			now := timeNow()
			if a.gf.JSON {
				dueToday, overdue := store.DueBuckets(tasks, now)
				return a.writeJSON(map[string]any{"today": nonNil(dueToday), "overdue": nonNil(overdue)})
			}
			fmt.Fprint(a.stdout, store.RenderToday(tasks, now))
			return nil
		},
	}
}

func (a *app) weekCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:     "week",
		Aliases: []string{"agenda", "upcoming"},
		Short:   "Show the agenda for the coming days",
		Args:    exactArgs(0, "week [--days 7]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return usagef("week: --days must be at least 1")
			}
			_, tasks, err := a.loadTasks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, store.RenderAgenda(tasks, timeNow(), days))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to show")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show counts per column and the completion rate",
		Args:  exactArgs(0, "stats"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tasks, err := a.loadTasks(cmd.Context())
			if err != nil {
				return err
			}
			stats := store.ComputeStats(tasks)
			if a.gf.JSON {
				stats.Recent = nonNil(stats.Recent)
				return a.writeJSON(stats)
			}
			fmt.Fprintln(a.stdout, a.heading("Dashboard"))
			fmt.Fprint(a.stdout, store.RenderStats(stats))
			return nil
		},
	}
}

func (a *app) favoritesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"favs"},
		Short:   "List high priority tasks",
		Args:    exactArgs(0, "favorites"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tasks, err := a.loadTasks(cmd.Context())
			if err != nil {
				return err
			}
			favs := store.Favorites(tasks)
			if len(favs) == 0 && !a.gf.JSON && !a.gf.Plain {
				a.info("No high priority tasks.\n")
				return nil
			}
			return a.printTasks(favs)
		},
	}
}

func nonNil(tasks []store.Task) []store.Task {
	if tasks == nil {
		return []store.Task{}
	}
	return tasks
}
