package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-matcher/internal/server"
)

var (
	servePort      int
	serveNoMonitor bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing realtime search, stored job lookup, resume parsing,
fit scoring, resume review and saved listings. The freshness monitor runs in the same
process unless it is disabled in config or with --no-monitor.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveNoMonitor, "no-monitor", false, "Do not run the freshness monitor")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != 0 {
		a.cfg.Server.Port = servePort
	}
	if err := a.withStore(ctx); err != nil {
		return err
	}
	a.withProvider()
	a.withSearch(ctx)
	if err := a.withReviewer(ctx); err != nil {
		return err
	}
	if a.cfg.Freshness.Enabled && !serveNoMonitor {
		a.withMonitor()
	}

	srv, err := server.New(a.serverDeps(), a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if a.monitor != nil {
		if err := a.monitor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start freshness monitor: %w", err)
		}
		defer a.monitor.Stop()
	}
	return srv.Start(ctx)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
