package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"CampusNotify/internal/app"
	"CampusNotify/internal/config"
	"CampusNotify/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "campusnotify",
		Short: "Notify registered recipients about campus bulletin changes",
		Long: "campusnotify watches a bulletin-style announcement page, detects new or\n" +
			"reclassified announcements, and fans per-audience notifications out to\n" +
			"registered recipients. A run mode must be selected explicitly.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// No mode selected: usage error, nothing delivered, nothing mutated.
			_ = cmd.Usage()
			return errors.New(`a run mode is required: "daily" or "realtime"`)
		},
	}

	root.AddCommand(newDailyCmd())
	root.AddCommand(newRealtimeCmd())
	root.AddCommand(newScheduleCmd())
	return root
}

func newDailyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Deliver the whole day's digest to daily recipients and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				return a.RunDaily(ctx)
			})
		},
	}
}

func newRealtimeCmd() *cobra.Command {
	var broadcast bool

	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Deliver new and reclassified announcements to realtime recipients and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				return a.RunRealtime(ctx, broadcast)
			})
		},
	}
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "also publish per-item posts to the side channel")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var broadcast bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Keep running realtime and daily sweeps on their cron specs until signalled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApplication(ctx, func(ctx context.Context, a *app.Application) error {
				return a.RunSchedule(ctx, broadcast)
			})
		},
	}
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "also publish per-item posts to the side channel")
	return cmd
}

func withApplication(ctx context.Context, run func(context.Context, *app.Application) error) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer application.Close()

	if err := run(ctx, application); err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	return nil
}
