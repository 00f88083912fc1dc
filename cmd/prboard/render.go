package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pagerguild/prqueue"
	"github.com/pagerguild/prqueue/github"
	"github.com/pagerguild/prqueue/internal/dashboard"
)

func renderBoard(w io.Writer, board *dashboard.Board, stats prqueue.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPO\tPR\tTITLE\tAUTHOR\tAPPROVALS\tCI\tFLAGS")
	for _, row := range board.Rows {
		ci := "?"
		if row.Checks != nil {
			ci = row.Checks.OverallStatus
		}
		fmt.Fprintf(tw, "%s\t#%d\t%s\t%s\t%d\t%s\t%s\n",
			row.PR.Repo.FullName,
			row.PR.Number,
			truncate(row.PR.Title, 50),
			row.PR.Author.Login,
			row.Reviews.Approvals,
			ci,
			flags(row),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, repo := range slices.Sorted(maps.Keys(board.RepoErrors)) {
		fmt.Fprintf(w, "%s: %v\n", repo, board.RepoErrors[repo])
	}
	fmt.Fprintf(w, "loaded %s, ", board.LoadedAt.Format(time.TimeOnly))
	return renderBudget(w, stats)
}

func flags(row dashboard.Row) string {
	var f []string
	if row.PR.Draft {
		f = append(f, "draft")
	}
	if row.NeedsApprovals {
		f = append(f, "needs-approvals")
	}
	if row.Conflict {
		f = append(f, "conflict")
	}
	if row.Err != nil {
		f = append(f, "incomplete")
	}
	return strings.Join(f, ",")
}

func renderBudget(w io.Writer, stats prqueue.Stats) error {
	b := stats.Budget
	var line string
	switch {
	case b.Remaining < 0:
		line = "rate budget unknown"
	case b.RetryAfter > 0:
		line = fmt.Sprintf("rate budget %d/%d, secondary limit for %s", b.Remaining, b.Limit, b.RetryAfter.Round(time.Second))
	default:
		line = fmt.Sprintf("rate budget %d/%d, resets %s", b.Remaining, b.Limit, b.Reset.Format(time.TimeOnly))
	}
	if stats.Requests > 0 {
		line += fmt.Sprintf(", %d requests in flight", stats.Requests)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func renderRepos(w io.Writer, repos []github.Repo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPO\tSTARS\tDESCRIPTION")
	for _, r := range repos {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.FullName, r.Stars, truncate(r.Description, 60))
	}
	return tw.Flush()
}

func renderIssues(w io.Writer, issues []github.Issue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ISSUE\tTITLE\tAUTHOR\tCOMMENTS")
	for _, i := range issues {
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%d\n", i.Number, truncate(i.Title, 60), i.Author.Login, i.Comments)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
