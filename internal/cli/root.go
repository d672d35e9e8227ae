// Package cli implements the command-line interface for relnotes.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kilupskalvis/relnotes/internal/config"
	"github.com/kilupskalvis/relnotes/internal/store"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store // nil outside a project
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext loads the config and, inside a project, opens the history store.
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	c := &cmdContext{Config: cfg}
	if !cfg.HasProject() {
		return c
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	if err := st.Initialize(); err != nil {
		st.Close()
		exitError("failed to initialize store: %v", err)
	}
	c.Store = st
	return c
}

// initProjectContext is initContext for commands that need the history store.
func initProjectContext() *cmdContext {
	c := initContext()
	if c.Store == nil {
		exitError("not a relnotes project (run 'relnotes init' first)")
	}
	return c
}

var (
	logLevel  string
	logFormat string

	// logger is configured from the persistent flags before any command runs.
	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "relnotes",
	Short: "Release notes generator",
	Long: `relnotes builds a Markdown change log for a GitHub repository from the
commits between the previous release and a branch or commit, annotated
with the issues each commit message references.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(os.Stderr, logLevel, logFormat)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&logLevel, "log-level", envOrDefault("RELNOTES_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")
	f.StringVar(&logFormat, "log-format", envOrDefault("RELNOTES_LOG_FORMAT", "text"), "Log format (json|text)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(changelogCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger builds the slog logger for the given level and format names.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// envOrDefault returns the value of the environment variable key, or defaultVal if unset.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
