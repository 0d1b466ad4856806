// ABOUTME: Root Cobra command and global state for the tern CLI.
// ABOUTME: Sets up lifecycle hooks for config loading and the posting stack.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/tern/internal/auth"
	"github.com/2389-research/tern/internal/config"
	"github.com/2389-research/tern/internal/pacing"
	"github.com/2389-research/tern/internal/poster"
	"github.com/2389-research/tern/internal/storage"
	"github.com/2389-research/tern/internal/twitter"
)

var (
	globalConfig  *config.Config
	globalLogger  *slog.Logger
	globalCache   *auth.Cache
	globalPacer   *pacing.Pacer
	globalPoster  *poster.Poster
	globalHistory storage.HistoryStore

	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tern",
	Short: "Post to X/Twitter over MCP",
	Long: `
████████╗███████╗██████╗ ███╗   ██╗
╚══██╔══╝██╔════╝██╔══██╗████╗  ██║
   ██║   █████╗  ██████╔╝██╔██╗ ██║
   ██║   ██╔══╝  ██╔══██╗██║╚██╗██║
   ██║   ███████╗██║  ██║██║ ╚████║
   ╚═╝   ╚══════╝╚═╝  ╚═╝╚═╝  ╚═══╝

An MCP server that posts tweets and threads, refreshing OAuth2
tokens and pacing posts per user to stay clear of abuse detection.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(globalLogger)

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		historyPath, err := cfg.GetHistoryPath()
		if err != nil {
			return fmt.Errorf("failed to resolve history path: %w", err)
		}
		history, err := storage.NewHistoryMDStore(historyPath)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		globalHistory = history

		globalCache = auth.NewCache()
		globalPacer = pacing.NewPacer()
		globalPacer.SetDelayRange(
			secondsToDuration(cfg.Pacing.MinDelaySeconds),
			secondsToDuration(cfg.Pacing.MaxDelaySeconds),
		)

		refresher := auth.NewRefresher(auth.RefresherConfig{
			TokenURL: cfg.Twitter.TokenURL,
			Overrides: auth.PropagationOverrides{
				PrimaryURL: cfg.Propagation.UpdateConfigURL,
				SiblingURL: cfg.Propagation.UpdateConfigDevURL,
			},
			Logger: globalLogger,
		})

		globalPoster = poster.New(globalCache, globalPacer, refresher,
			poster.WithLogger(globalLogger),
			poster.WithHistory(globalHistory),
			poster.WithClientFactory(func(accessToken string) *twitter.Client {
				return twitter.NewClient(cfg.Twitter.APIBaseURL, cfg.Twitter.UploadURL, accessToken)
			}),
		)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalHistory != nil {
			_ = globalHistory.Close()
			globalHistory = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
