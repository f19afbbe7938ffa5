package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/botkit/cmd/botkit/internal/format"
	"github.com/vulntor/botkit/pkg/jobs"
)

func newWorkerCommand() *cobra.Command {
	var (
		once            bool
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Perform queued requests from the spool",
		Long: `Run job workers on the spool backend until SIGINT or SIGTERM.

Workers perform requests enqueued by "botkit send" (or any other process
sharing jobs.spool_dir) with the bots of this configuration. With --once the
worker drains due records and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := prepareRuntime(cmd)
			if err != nil {
				return err
			}
			spool, ok := rt.backend.(*jobs.SpoolManager)
			if !ok {
				return WithErrorCode(
					errors.New("worker needs the spool backend; set jobs.backend=spool and jobs.spool_dir"),
					codeInvalidConfig)
			}
			defer rt.logJobEvents()()

			if once {
				return runOnce(cmd, spool)
			}
			return runWorker(cmd, spool, shutdownTimeout)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Drain due jobs and exit")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Time to let running jobs finish on shutdown")

	return cmd
}

func runOnce(cmd *cobra.Command, spool *jobs.SpoolManager) error {
	n, err := spool.Drain(cmd.Context())
	if err != nil {
		return WithErrorCode(err, codeRequestFailed)
	}

	st := spool.Status()
	f := format.FromCommand(cmd)
	if f.IsJSON() {
		return f.PrintJSON(map[string]any{"performed": n, "status": st})
	}
	return f.PrintSummary(fmt.Sprintf("✓ %d job(s) performed, %d failed, %d still queued", n, st.Failed, st.QueueDepth))
}

func runWorker(cmd *cobra.Command, spool *jobs.SpoolManager, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := spool.Start(ctx); err != nil {
		return WithErrorCode(err, codeRequestFailed)
	}
	log.Info().
		Str("component", "worker").
		Str("spool_dir", spool.Dir()).
		Msg("Worker running, press Ctrl+C to stop")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
	defer cancel()
	if err := spool.Stop(stopCtx); err != nil {
		return WithErrorCode(fmt.Errorf("worker shutdown: %w", err), codeRequestFailed)
	}

	st := spool.Status()
	log.Info().
		Str("component", "worker").
		Int64("processed", st.Processed).
		Int64("failed", st.Failed).
		Int64("retried", st.Retried).
		Msg("Worker stopped")
	return nil
}
