// Package main is the kensaku CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/session"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kensaku",
		Short: "Ranked retrieval over a persisted inverted index",
		Long: `kensaku reads an existing index and answers ranked queries against it.

It exposes collection statistics, document term vectors, and ranked search
under query likelihood, BM25 and TF-IDF models, from the command line or
over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", defaultConfigPath, "config file path")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		newSearchCmd(),
		newBatchCmd(),
		newStatsCmd(),
		newTermCmd(),
		newDocCmd(),
		newRunsCmd(),
		newServeCmd(),
	)
	return root
}

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence so that running from a project
// directory picks up the project's settings.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// env is the loaded configuration and logger shared by every command.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	debug      bool
}

func setup(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug = debug || cfg.Debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return &env{cfg: cfg, configPath: resolved, logger: logger, debug: debug}, nil
}

// openSession loads config and opens the configured index.
func openSession(cmd *cobra.Command, opts ...session.Option) (*env, *session.Session, error) {
	e, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.Open(e.cfg, e.logger, opts...)
	if err != nil {
		_ = e.logger.Sync()
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	return e, sess, nil
}

func (e *env) openArchive() (*storage.SQLiteArchive, error) {
	a, err := storage.NewSQLiteArchive(e.cfg.Archive.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run archive: %w", err)
	}
	return a, nil
}

func (e *env) close() {
	_ = e.logger.Sync()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
