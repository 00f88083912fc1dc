package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagerguild/prqueue/internal/config"
	"github.com/pagerguild/prqueue/internal/dashboard"
)

var pollInterval time.Duration

var pullsCmd = &cobra.Command{
	Use:   "pulls [owner/repo...]",
	Short: "Show open pull requests with reviews, CI and merge state",
	Long:  "Shows the dashboard for the given repositories, or for the account's repositories from the config file.",
	RunE:  runPulls,
}

func init() {
	pullsCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Refresh the dashboard at this interval (e.g. 10s); 0 shows it once (default: pollIntervalMs from the config file)")
	rootCmd.AddCommand(pullsCmd)
}

func runPulls(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	repos := args
	if len(repos) == 0 {
		repos = a.account.Repos
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repositories given and none configured for account %q", a.account.Name)
	}

	interval := refreshInterval(cmd, a.cfg)
	loader := dashboard.New(a.client, a.cfg.RequiredApprovals, nil)
	for {
		board, err := loader.Load(ctx, repos)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := renderBoard(os.Stdout, board, a.queue.Stats()); err != nil {
			return err
		}

		if interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// refreshInterval returns --interval if it was given and the config file's
// poll interval otherwise.
func refreshInterval(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("interval") {
		return pollInterval
	}
	return cfg.PollIntervalDuration()
}
