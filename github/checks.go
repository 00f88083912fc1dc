package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v62/github"

	"github.com/pagerguild/prqueue"
)

// GetChecks fetches the latest check run of every check on a PR's head and
// computes the overall CI status.
func (c *Client) GetChecks(ctx context.Context, owner, repo string, number int) (*CIStatus, error) {
	ref := fmt.Sprintf("pull/%d/head", number)
	runs, err := call(ctx, c, prqueue.High, func(ctx context.Context) ([]*gh.CheckRun, *gh.Response, error) {
		return paginate(ctx, func(ctx context.Context, page int) ([]*gh.CheckRun, *gh.Response, error) {
			result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, &gh.ListCheckRunsOptions{
				Filter:      gh.String("latest"),
				ListOptions: gh.ListOptions{PerPage: 100, Page: page},
			})
			if err != nil {
				return nil, resp, err
			}
			return result.CheckRuns, resp, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list check runs for %s: %w", ref, err)
	}

	checks := make([]CICheck, 0, len(runs))
	for _, cr := range runs {
		checks = append(checks, CICheck{
			ID:         cr.GetID(),
			Name:       cr.GetName(),
			Status:     cr.GetStatus(),
			Conclusion: cr.GetConclusion(),
			HTMLURL:    cr.GetHTMLURL(),
		})
	}

	return &CIStatus{
		TotalCount:    len(checks),
		Checks:        checks,
		OverallStatus: computeOverallStatus(checks),
	}, nil
}

// computeOverallStatus determines the aggregate CI status from individual checks.
func computeOverallStatus(checks []CICheck) string {
	if len(checks) == 0 {
		return "pending"
	}

	hasFailure := false
	hasPending := false
	hasSuccess := false

	for _, check := range checks {
		switch {
		case check.Status == "queued" || check.Status == "in_progress":
			hasPending = true
		case check.Status == "completed" && (check.Conclusion == "failure" || check.Conclusion == "timed_out"):
			hasFailure = true
		case check.Status == "completed" && (check.Conclusion == "success" || check.Conclusion == "skipped" || check.Conclusion == "neutral"):
			hasSuccess = true
		}
	}

	switch {
	case hasPending:
		return "pending"
	case hasFailure && hasSuccess:
		return "mixed"
	case hasFailure:
		return "failing"
	default:
		return "passing"
	}
}
