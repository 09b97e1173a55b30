package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tetmin/mcp-beeper-texts/internal/archive"
	"github.com/tetmin/mcp-beeper-texts/internal/config"
	"github.com/tetmin/mcp-beeper-texts/internal/query"
)

var (
	cfgFile     string
	homeDir     string
	archiveRoot string
	verbose     bool
	cfg         *config.Config
	logger      *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "beeper-texts",
	Short: "Query your Beeper Desktop message archive",
	Long: `beeper-texts reads the local database Beeper Desktop keeps of your chats
across WhatsApp, Telegram, Signal, iMessage and the other bridged networks.

It never writes to the archive. Use "mcp" to expose it to an MCP client such
as Claude Desktop, "serve" for a local HTTP API, or the query commands below
from a terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs always go to stderr; in MCP mode stdout carries the protocol.
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if archiveRoot != "" {
			cfg.Archive.Root = archiveRoot
		}
		logger.Debug("using archive", "root", cfg.Archive.Root, "config", cfg.ConfigFilePath())
		return nil
	},
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openArchive describes the configured archive without touching it.
func openArchive() *archive.Archive {
	return &archive.Archive{
		Root:      cfg.Archive.Root,
		IndexPath: cfg.IndexPath(),
		MediaDir:  cfg.MediaPath(),
	}
}

// newEngine builds the query engine from the loaded configuration.
func newEngine() *query.SQLiteEngine {
	q := cfg.Query
	return query.NewSQLiteEngine(openArchive(), query.Options{
		ContextWindow:      q.ContextWindow.Duration,
		ContextLimit:       q.ContextLimit,
		PersonContextLimit: q.PersonContextLimit,
		ImageMaxDimension:  q.ImageMaxDimension,
		ImageQuality:       q.ImageQuality,
		MaxInlineBytes:     q.MaxInlineBytes,
	}, logger)
}

// archiveHint decorates archive-not-found errors with where we looked.
func archiveHint(err error) error {
	if err == nil || !isArchiveMissing(err) {
		return err
	}
	return fmt.Errorf("%w\n\nIs Beeper Desktop installed? Set [archive] root in %s, BEEPER_ARCHIVE, or pass --archive",
		err, cfg.ConfigFilePath())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.beeper-texts/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides BEEPER_TEXTS_HOME)")
	rootCmd.PersistentFlags().StringVar(&archiveRoot, "archive", "", "Beeper Desktop data directory (overrides config and BEEPER_ARCHIVE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
