package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	config "github.com/maheshrc27/threads-poster/configs"
)

// NewOnceCommand creates the once command.
func NewOnceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Log in and run a single posting cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd)
		},
	}
}

func runOnce(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBot(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	session, err := b.auth.LoginWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	report, err := b.cycle.RunCycle(ctx, b.threads.ForSession(session))
	fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d succeeded=%d failed=%d\n", report.Attempted, report.Succeeded, report.Failed)
	return err
}
