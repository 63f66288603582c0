package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/dqguard-cli/internal/config"
	"github.com/KaramelBytes/dqguard-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	debug      bool
	flagOutDir string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Diagnostic logger; stderr
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "dqguard",
	Short: "dqguard: profile datasets, suggest quality rules and flag anomalies",
	Long: `dqguard profiles CSV/TSV/XLSX files, suggests validation and cleaning rules,
previews their effect, flags anomalous rows with an isolation forest and exports
validation suites, SQL cleaning scripts and markdown reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dqguard/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagOutDir, "out-dir", "", "directory for exported files (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("out-dir") && flagOutDir != "" {
		cfg.OutDir = flagOutDir
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	if debug {
		level = slog.LevelDebug
	}
	logger = logging.New(logging.Config{Level: level, Format: cfg.LogFormat, Output: os.Stderr})
	logger.Debug("config loaded", "out_dir", cfg.OutDir, "projects_dir", cfg.ProjectsDir, "history", cfg.HistoryEnabled)
}

// conf returns the loaded configuration, loading it on first use.
func conf() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}
