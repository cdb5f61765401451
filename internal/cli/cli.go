package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shlokDS16/flow-state-studio/internal/config"
	"github.com/shlokDS16/flow-state-studio/internal/logging"
	"github.com/shlokDS16/flow-state-studio/internal/store"
	"github.com/shlokDS16/flow-state-studio/internal/store/sqlstore"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

type GlobalFlags struct {
	Root    string
	Config  string
	JSON    bool
	Plain   bool
	ASCII   bool
	Quiet   bool
	Verbose bool
}

// usageError marks bad invocations so they exit with ExitUsage.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// app carries what every command needs. Store and logger are set up lazily so that
// commands like "config show" work without a workspace.
type app struct {
	gf     GlobalFlags
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *zap.Logger
	store  store.Store
	closer func() error
}

func Run(args []string) int {
	return run(args, os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	a.shutdown()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(stderr, "flowstate:", err)
	var conflict *store.MatchConflictError
	if errors.As(err, &conflict) {
		for _, t := range conflict.Matches {
			fmt.Fprintf(stderr, "  %s  %s\n", t.ID, t.Title)
		}
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage), errors.Is(err, store.ErrInvalid):
		return ExitUsage
	case strings.HasPrefix(err.Error(), "unknown command"), strings.HasPrefix(err.Error(), "unknown flag"):
		return ExitUsage
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrConflict):
		return ExitConflict
	default:
		return ExitInternal
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowstate",
		Short: "flowstate - a kanban task board you can talk to",
		Long: `flowstate keeps tasks in three columns (todo, in_progress, done) and understands
plain-English commands such as "Create a task called Buy milk, tomorrow, high"
or "Move Buy milk to done".

Tasks live under $FLOWSTATE_ROOT (default ~/.flowstate) as Markdown documents,
or in a SQLite database when store.backend is sqlite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return usagef("missing command")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.gf.Root, "root", "", "Workspace root (default $FLOWSTATE_ROOT or ~/.flowstate)")
	pf.StringVar(&a.gf.Config, "config", "", "Config file (default <root>/config.yaml)")
	pf.BoolVar(&a.gf.JSON, "json", false, "JSON output")
	pf.BoolVar(&a.gf.Plain, "plain", false, "Tab-separated output without styling")
	pf.BoolVar(&a.gf.ASCII, "ascii", false, "ASCII-only output")
	pf.BoolVarP(&a.gf.Quiet, "quiet", "q", false, "Suppress informational output")
	pf.BoolVarP(&a.gf.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.listCmd(),
		a.showCmd(),
		a.moveCmd(),
		a.doneCmd(),
		a.removeCmd(),
		a.editCmd(),
		a.boardCmd(),
		a.todayCmd(),
		a.weekCmd(),
		a.statsCmd(),
		a.favoritesCmd(),
		a.askCmd(),
		a.chatCmd(),
		a.serveCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	root := a.gf.Root
	if root == "" {
		root = config.DefaultRoot()
	}
	path := a.gf.Config
	if path == "" {
		path = config.DefaultPath(store.ExpandHome(root))
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.gf.Root != "" {
		cfg.Store.Root = a.gf.Root
	}
	cfg.Store.Root = store.ExpandHome(cfg.Store.Root)
	if err := cfg.Validate(); err != nil {
		return usagef("config: %v", err)
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Logging, a.gf.Verbose)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// openStore opens the configured backend once per invocation.
func (a *app) openStore() (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	switch a.cfg.Store.Backend {
	case config.BackendSQLite:
		s, err := sqlstore.Open(a.cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		a.store, a.closer = s, s.Close
	default:
		ws, err := store.Open(a.cfg.Store.Root)
		if err != nil {
			return nil, err
		}
		if err := ws.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize workspace: %w", err)
		}
		a.store = ws
	}
	a.logger.Debug("store opened", zap.String("backend", a.cfg.Store.Backend), zap.String("root", a.cfg.Store.Root))
	return a.store, nil
}

func (a *app) shutdown() {
	if a.closer != nil {
		if err := a.closer(); err != nil && a.logger != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// loadTasks lists every task in the configured store.
func (a *app) loadTasks(ctx context.Context) (store.Store, []store.Task, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, tasks, nil
}

// resolve finds one task by id prefix or title.
func (a *app) resolve(ctx context.Context, selector string) (store.Store, *store.Task, error) {
	s, tasks, err := a.loadTasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	t, err := store.ResolveSelector(tasks, selector)
	if err != nil {
		return nil, nil, err
	}
	return s, t, nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: flowstate %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: flowstate %s", usage)
		}
		return nil
	}
}
