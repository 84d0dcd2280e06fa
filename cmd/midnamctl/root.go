package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nerrad567/midnam-core/internal/editor"
	"github.com/nerrad567/midnam-core/internal/infrastructure/config"
	"github.com/nerrad567/midnam-core/internal/infrastructure/database"
	"github.com/nerrad567/midnam-core/internal/infrastructure/logging"
	"github.com/nerrad567/midnam-core/internal/localstore"
	"github.com/nerrad567/midnam-core/internal/midnam"
)

// Output styles. lipgloss drops colour when stdout is not a terminal.
var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"})
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
)

// app holds the flags and lazily opened store shared by every command.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	store *localstore.Store
	svc   *editor.Service
}

// run builds the command tree, executes args and closes the store.
func run(args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(context.Background())
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "midnamctl",
		Short: "Manage the local MIDNAM device store",
		Long: `midnamctl reads and writes the SQLite store used by midnamd.

Records are keyed by path. Documents are stored verbatim; the manufacturer
and model are extracted when the document carries them.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $MIDNAM_CONFIG or built-in defaults)")
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path, overrides the config file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(
		a.listCmd(),
		a.getCmd(),
		a.putCmd(),
		a.deleteCmd(),
		a.clearCmd(),
		a.statsCmd(),
		a.newCmd(),
		a.normalizeCmd(),
		a.exportCmd(),
	)
	return root
}

// loadConfig resolves the configuration and applies the --db override.
func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = os.Getenv("MIDNAM_CONFIG")
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// service opens the store on first use and returns the editor service.
func (a *app) service() (*editor.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if !a.verbose {
		logCfg.Level = "warn"
	}
	log := logging.NewWithWriter(a.errOut, logCfg, version)

	a.store = localstore.New(
		localstore.SQLiteOpener(database.ConfigFrom(cfg.Database)),
		localstore.WithQuota(cfg.Database.QuotaBytes),
		localstore.WithLogger(log),
	)
	a.svc = editor.NewService(a.store, editor.WithLogger(log))
	return a.svc, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close() //nolint:errcheck // Process is exiting
	}
}

// interactive reports whether prompts can be shown on the input.
func (a *app) interactive() bool {
	f, ok := a.in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) success(format string, args ...any) {
	fmt.Fprintln(a.out, styleSuccess.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// errorHint returns a one-line explanation for well-known failures.
func errorHint(err error) string {
	switch {
	case errors.Is(err, localstore.ErrStoreUnavailable):
		return "The local store could not be opened. Check the database path and permissions."
	case errors.Is(err, localstore.ErrQuotaExceeded):
		return "The storage quota is full. Delete records or raise database.quota_bytes."
	case errors.Is(err, localstore.ErrInvalidPath):
		return "Record paths must be non-empty."
	case errors.Is(err, midnam.ErrMalformedDocument):
		return "The document is not well-formed XML."
	case errors.Is(err, editor.ErrDeviceNotFound):
		return "Run 'midnamctl list' to see stored paths."
	case errors.Is(err, editor.ErrPathExists):
		return "Pass --path to store the new device elsewhere, or delete the existing record."
	default:
		return ""
	}
}
