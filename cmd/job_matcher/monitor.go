package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-matcher/internal/observability"
)

var monitorOnce bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the freshness monitor",
	Long: `Re-check stored jobs against the job source, marking unseen jobs stale and then
expired, and purging expired jobs past retention. With --once a single cycle runs and
its report is printed; otherwise cycles run on the configured interval until interrupted.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "Run one cycle, print its report and exit")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withStore(ctx); err != nil {
		return err
	}
	a.withProvider()
	a.withMonitor()

	if monitorOnce {
		report, err := a.monitor.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("freshness cycle failed: %w", err)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintCycleReport(report)
		return nil
	}

	if err := a.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start freshness monitor: %w", err)
	}
	<-ctx.Done()
	a.monitor.Stop()
	return nil
}
