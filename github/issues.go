package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v62/github"

	"github.com/pagerguild/prqueue"
)

// ListIssues returns the open issues of a repository given as "owner/repo".
// GitHub reports pull requests as issues too; those are left out.
func (c *Client) ListIssues(ctx context.Context, fullName string) ([]Issue, error) {
	owner, repo, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}

	all, err := call(ctx, c, prqueue.Normal, func(ctx context.Context) ([]*gh.Issue, *gh.Response, error) {
		return c.gh.Issues.ListByRepo(ctx, owner, repo, &gh.IssueListByRepoOptions{
			State:       "open",
			ListOptions: gh.ListOptions{PerPage: 100},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", fullName, err)
	}

	var issues []Issue
	for _, i := range all {
		if i.IsPullRequest() {
			continue
		}
		issues = append(issues, Issue{
			Number:    i.GetNumber(),
			Title:     i.GetTitle(),
			HTMLURL:   i.GetHTMLURL(),
			Author:    userFromGH(i.GetUser()),
			Labels:    labelsFromGH(i.Labels),
			Comments:  i.GetComments(),
			CreatedAt: i.GetCreatedAt().Time,
		})
	}
	return issues, nil
}
