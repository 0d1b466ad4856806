// ABOUTME: HTTP server command exposing the MCP transport and admin endpoints.
// ABOUTME: Mounts /mcp alongside the operational JSON side-channel and /metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/2389-research/tern/internal/admin"
	mcppkg "github.com/2389-research/tern/internal/mcp"
)

var flagListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server (MCP + admin endpoints)",
	Long: `Start the streamable HTTP MCP server.

Tool invocations carry per-caller credentials in headers
(twitter_client_id, twitter_client_secret, twitter_refresh_token,
user_id, server_id, update_config_url). Administrative endpoints for
inspecting and clearing token cache and pacing state are served on the
same listener, along with Prometheus metrics at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListenAddr, "addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := mcppkg.NewServer(globalPoster,
		mcppkg.WithLogger(globalLogger),
	)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	router.PathPrefix("/mcp").Handler(server.HTTPHandler())
	admin.NewHandler(globalCache, globalPacer, globalLogger).Register(router)

	addr := flagListenAddr
	if addr == "" {
		addr = globalConfig.Server.ListenAddr
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		globalLogger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
