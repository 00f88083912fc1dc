package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v62/github"

	"github.com/pagerguild/prqueue"
)

// ListReviews returns every review submitted on a PR, oldest first.
func (c *Client) ListReviews(ctx context.Context, owner, repo string, number int) ([]Review, error) {
	all, err := call(ctx, c, prqueue.High, func(ctx context.Context) ([]*gh.PullRequestReview, *gh.Response, error) {
		return paginate(ctx, func(ctx context.Context, page int) ([]*gh.PullRequestReview, *gh.Response, error) {
			return c.gh.PullRequests.ListReviews(ctx, owner, repo, number, &gh.ListOptions{PerPage: 100, Page: page})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for PR #%d: %w", number, err)
	}

	reviews := make([]Review, 0, len(all))
	for _, r := range all {
		reviews = append(reviews, Review{
			ID:          r.GetID(),
			Author:      userFromGH(r.GetUser()),
			State:       r.GetState(),
			SubmittedAt: r.GetSubmittedAt().Time,
		})
	}
	return reviews, nil
}

// LatestReviews returns the most recent review of every reviewer on a PR.
func (c *Client) LatestReviews(ctx context.Context, owner, repo string, number int) ([]Review, error) {
	reviews, err := c.ListReviews(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	return LatestByAuthor(reviews), nil
}

// LatestByAuthor keeps the review with the greatest SubmittedAt for every
// author. Authors appear in the order of their first review.
func LatestByAuthor(reviews []Review) []Review {
	if len(reviews) == 0 {
		return nil
	}

	index := make(map[string]int)
	var latest []Review
	for _, r := range reviews {
		i, ok := index[r.Author.Login]
		if !ok {
			index[r.Author.Login] = len(latest)
			latest = append(latest, r)
			continue
		}
		if latest[i].SubmittedAt.Before(r.SubmittedAt) {
			latest[i] = r
		}
	}
	return latest
}

// Summarize drops dismissed reviews and counts approvals.
func Summarize(latest []Review) ReviewSummary {
	var s ReviewSummary
	for _, r := range latest {
		switch r.State {
		case "DISMISSED":
			continue
		case "APPROVED":
			s.Approvals++
		}
		s.Reviews = append(s.Reviews, r)
	}
	return s
}
