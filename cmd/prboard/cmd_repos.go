package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagerguild/prqueue/github"
)

var starredOnly bool

var reposCmd = &cobra.Command{
	Use:   "repos [org]",
	Short: "List repositories of an organization, or your own",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRepos,
}

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "List your organizations",
	Args:  cobra.NoArgs,
	RunE:  runOrgs,
}

var issuesCmd = &cobra.Command{
	Use:   "issues <owner/repo>",
	Short: "List open issues of a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssues,
}

func init() {
	reposCmd.Flags().BoolVar(&starredOnly, "starred", false, "List repositories you starred")
	rootCmd.AddCommand(reposCmd, orgsCmd, issuesCmd)
}

func runRepos(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var repos []github.Repo
	switch {
	case len(args) == 1:
		repos, err = a.client.ListOrgRepositories(ctx, args[0])
	case starredOnly:
		repos, err = a.client.ListStarredRepositories(ctx)
	default:
		repos, err = a.client.ListUserRepositories(ctx)
	}
	if err != nil {
		return err
	}
	return renderRepos(os.Stdout, repos)
}

func runOrgs(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orgs, err := a.client.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	for _, o := range orgs {
		fmt.Fprintln(os.Stdout, o.Login)
	}
	return nil
}

func runIssues(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	issues, err := a.client.ListIssues(ctx, args[0])
	if err != nil {
		return err
	}
	return renderIssues(os.Stdout, issues)
}
