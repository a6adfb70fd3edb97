package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/voxa/internal/config"
	"github.com/abhisek/voxa/internal/logging"
	"github.com/abhisek/voxa/internal/progression"
	"github.com/abhisek/voxa/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "voxa",
	Short: "Spoken-practice evaluation and progression engine",
	Long: "Voxa scores spoken-practice sessions, writes coaching feedback and keeps a durable\n" +
		"per-user progression ledger of experience, level and streak.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides VOXA_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config (or the defaults), then applies VOXA_* overrides
// and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then VOXA_DB env var or the config file, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}

// openLedger opens the store and builds a ledger over it. The caller closes
// the returned store.
func openLedger(cmd *cobra.Command, cfg *config.Config, opts progression.Options) (*store.Store, *progression.Ledger, error) {
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.OpenContext(cmd.Context(), dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	opts.StorageTimeout = cfg.Database.StorageTimeout
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return st, progression.New(st.LedgerRepo(), opts), nil
}

// openProfiles opens the store and builds a profile service over it. The
// caller closes the returned store.
func openProfiles(cmd *cobra.Command, cfg *config.Config) (*store.Store, *progression.Profiles, error) {
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.OpenContext(cmd.Context(), dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return st, progression.NewProfiles(st.ProfileRepo(), progression.Options{
		StorageTimeout: cfg.Database.StorageTimeout,
		Logger:         logging.Nop(),
	}), nil
}
