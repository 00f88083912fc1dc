package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagerguild/prqueue/internal/config"
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Check the token and show the remaining rate budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.client.Authenticated(ctx)
		if err != nil {
			return err
		}
		// Any queued call reports the budget back to the tracker.
		if _, err := a.client.ListOrganizations(ctx); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "authenticated as %s\n", user.Login)
		return renderBudget(os.Stdout, a.queue.Stats())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(rateCmd, configCmd)
}
