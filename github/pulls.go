package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v62/github"

	"github.com/pagerguild/prqueue"
)

// ListPullRequests returns the open pull requests of a repository given as
// "owner/repo".
func (c *Client) ListPullRequests(ctx context.Context, fullName string) ([]PRItem, error) {
	owner, repo, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}

	prs, err := call(ctx, c, prqueue.Normal, func(ctx context.Context) ([]*gh.PullRequest, *gh.Response, error) {
		return c.gh.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
			State:       "open",
			ListOptions: gh.ListOptions{PerPage: 100},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s: %w", fullName, err)
	}

	items := make([]PRItem, 0, len(prs))
	for _, pr := range prs {
		items = append(items, PRItem{
			ID:        pr.GetID(),
			Number:    pr.GetNumber(),
			Title:     pr.GetTitle(),
			HTMLURL:   pr.GetHTMLURL(),
			Repo:      Repo{Owner: owner, Name: repo, FullName: fullName},
			Author:    userFromGH(pr.GetUser()),
			Labels:    labelsFromGH(pr.Labels),
			Draft:     pr.GetDraft(),
			CreatedAt: pr.GetCreatedAt().Time,
		})
	}
	return items, nil
}

// GetPullRequest fetches a single pull request including its merge state.
// A user is usually looking at the result, so it runs at high priority.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PRDetail, error) {
	pr, err := call(ctx, c, prqueue.High, func(ctx context.Context) (*gh.PullRequest, *gh.Response, error) {
		return c.gh.PullRequests.Get(ctx, owner, repo, number)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get PR #%d: %w", number, err)
	}

	return &PRDetail{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		HTMLURL:        pr.GetHTMLURL(),
		Author:         userFromGH(pr.GetUser()),
		Repo:           Repo{Owner: owner, Name: repo, FullName: owner + "/" + repo},
		BaseBranch:     pr.GetBase().GetRef(),
		HeadBranch:     pr.GetHead().GetRef(),
		HeadSHA:        pr.GetHead().GetSHA(),
		Draft:          pr.GetDraft(),
		Mergeable:      pr.GetMergeable(),
		MergeableState: pr.GetMergeableState(),
	}, nil
}
