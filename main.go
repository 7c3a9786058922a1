package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/api"
	"github.com/sadopc/worklog/internal/cache"
	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/guard"
	"github.com/sadopc/worklog/internal/logging"
	"github.com/sadopc/worklog/internal/store"
	"github.com/sadopc/worklog/internal/tui"
)

var (
	// Global flags
	configPath string
	dbPath     string
	remoteURL  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "Track daily work time from the terminal",
	Long: `worklog is a stopwatch for your working day.

Each finished session is added to the record for its date, so every day
has exactly one record. Records live in a local SQLite database, or on a
worklog server when remote.url is set.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return fmt.Errorf("locate config: %w", err)
			}
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		if dbPath != "" {
			c.Database.Path = dbPath
		}
		if remoteURL != "" {
			c.Remote.URL = remoteURL
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		cfg = c

		// The interactive interface owns the terminal, so it logs to a file.
		logger, err = logging.New(c.Logging, cmd.Root() == cmd, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/worklog/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "worklog server URL (overrides remote.url)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(wipeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openBackend returns the configured data source: the embedded store, or a
// client for the remote server. The returned func releases it.
func openBackend(ctx context.Context) (api.Service, func(), error) {
	if cfg.IsRemote() {
		c := api.NewClient(cfg.Remote.URL, cfg.RemoteTimeout(), logger)
		if err := c.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("reach %s: %w", cfg.Remote.URL, err)
		}
		logger.Debug("using remote backend", zap.String("url", cfg.Remote.URL))
		return c, func() {}, nil
	}

	s, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("using local database", zap.String("path", cfg.Database.Path))
	return s, func() { s.Close() }, nil
}

func newSyncer(b cache.Backend) *cache.Syncer {
	return cache.New(b,
		cache.WithLogger(logger.Named("cache")),
		cache.WithFreshness(cfg.Freshness()),
		cache.WithInterval(cfg.RefreshInterval()),
	)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, release, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	kf, err := guard.DefaultKeyFile()
	if err != nil {
		return fmt.Errorf("locate key file: %w", err)
	}
	home, _ := os.UserHomeDir()

	syncer := newSyncer(b)
	go syncer.Run(ctx)

	app := tui.NewApp(tui.Deps{
		Ctx:       ctx,
		Syncer:    syncer,
		Prefs:     b,
		KeyFile:   kf,
		Log:       logger.Named("tui"),
		ExportDir: home,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
