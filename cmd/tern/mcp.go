// ABOUTME: MCP server command in stdio mode for single-user deployments.
// ABOUTME: Uses process-configured credentials as the caller identity.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/tern/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server over stdio.

In stdio mode there are no per-request credential headers, so the
Twitter client credentials and refresh token come from config or
environment (TWITTER_CLIENT_ID, TWITTER_CLIENT_SECRET,
TWITTER_REFRESH_TOKEN).`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := []mcppkg.ServerOption{mcppkg.WithLogger(globalLogger)}
	if caller := globalConfig.FallbackCaller(); caller != nil {
		opts = append(opts, mcppkg.WithFallbackCaller(caller))
	}

	server, err := mcppkg.NewServer(globalPoster, opts...)
	if err != nil {
		return err
	}

	return server.Serve(ctx)
}
