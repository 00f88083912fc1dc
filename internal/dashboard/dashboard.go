// Package dashboard assembles the rows of the pull request dashboard. Each
// row combines a PR with its latest reviews, CI status and merge state.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pagerguild/prqueue/github"
)

// DefaultRequiredApprovals is the number of approvals below which a PR is
// flagged.
const DefaultRequiredApprovals = 2

// maxParallelRows bounds the goroutines waiting on the queue at once.
const maxParallelRows = 32

// Source is the part of the API access layer the dashboard reads from.
type Source interface {
	ListPullRequests(ctx context.Context, fullName string) ([]github.PRItem, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PRDetail, error)
	LatestReviews(ctx context.Context, owner, repo string, number int) ([]github.Review, error)
	GetChecks(ctx context.Context, owner, repo string, number int) (*github.CIStatus, error)
}

// Row is one pull request on the dashboard.
type Row struct {
	PR      github.PRItem
	Detail  *github.PRDetail
	Reviews github.ReviewSummary
	Checks  *github.CIStatus

	NeedsApprovals bool
	Conflict       bool

	// Err is set when any of the per-PR lookups failed. The fields of the
	// lookups that succeeded are still filled in.
	Err error
}

// Board is a loaded dashboard.
type Board struct {
	Rows       []Row
	RepoErrors map[string]error // repositories whose PRs could not be listed
	LoadedAt   time.Time
}

// Loader builds Boards.
type Loader struct {
	src      Source
	required int
	logger   *slog.Logger
}

// New creates a Loader. A requiredApprovals of zero or less means
// DefaultRequiredApprovals.
func New(src Source, requiredApprovals int, logger *slog.Logger) *Loader {
	if requiredApprovals <= 0 {
		requiredApprovals = DefaultRequiredApprovals
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{src: src, required: requiredApprovals, logger: logger}
}

// Load lists the open PRs of every repository and fetches the details of
// each PR concurrently. Failures of single repositories or PRs are reported
// on the Board; only cancellation of ctx fails the whole load.
func (l *Loader) Load(ctx context.Context, repos []string) (*Board, error) {
	lists := make([][]github.PRItem, len(repos))
	listErrs := make([]error, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		g.Go(func() error {
			prs, err := l.src.ListPullRequests(gctx, repo)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				l.logger.Warn("failed to list pull requests",
					slog.String("repo", repo),
					slog.String("error", err.Error()),
				)
				listErrs[i] = err
				return nil
			}
			lists[i] = prs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	board := &Board{}
	for i, repo := range repos {
		if listErrs[i] != nil {
			if board.RepoErrors == nil {
				board.RepoErrors = make(map[string]error)
			}
			board.RepoErrors[repo] = listErrs[i]
			continue
		}
		for _, pr := range lists[i] {
			board.Rows = append(board.Rows, Row{PR: pr})
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRows)
	for i := range board.Rows {
		row := &board.Rows[i]
		g.Go(func() error {
			l.fill(gctx, row)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	board.LoadedAt = time.Now()
	return board, nil
}

// fill fetches the reviews, checks and merge state of one PR.
func (l *Loader) fill(ctx context.Context, row *Row) {
	owner, repo, number := row.PR.Repo.Owner, row.PR.Repo.Name, row.PR.Number

	var (
		reviews   []github.Review
		reviewErr error
		checkErr  error
		detailErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reviews, reviewErr = l.src.LatestReviews(gctx, owner, repo, number)
		return nil
	})
	g.Go(func() error {
		row.Checks, checkErr = l.src.GetChecks(gctx, owner, repo, number)
		return nil
	})
	g.Go(func() error {
		row.Detail, detailErr = l.src.GetPullRequest(gctx, owner, repo, number)
		return nil
	})
	_ = g.Wait()

	row.Reviews = github.Summarize(reviews)
	row.NeedsApprovals = reviewErr == nil && row.Reviews.Approvals < l.required
	row.Conflict = row.Detail != nil && row.Detail.HasConflict()
	row.Err = errors.Join(reviewErr, checkErr, detailErr)

	if row.Err != nil && ctx.Err() == nil {
		l.logger.Warn("failed to load pull request",
			slog.String("repo", row.PR.Repo.FullName),
			slog.Int("number", number),
			slog.String("error", row.Err.Error()),
		)
	}
}
