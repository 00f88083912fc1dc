// Package prqueue is a dispatch queue for GitHub API calls made on behalf of
// a dashboard.
//
// Calls are submitted as thunks with a priority and run on a small fixed
// pool of workers. High priority work, such as the merge status of the pull
// request a user is looking at, is always started before normal priority
// listing work. The queue watches the rate limit metadata each call reports:
// when the primary budget runs low or GitHub signals a secondary limit, new
// calls are held back until the limit resets, and calls that were rejected
// are retried with backoff anchored to the reset time.
//
//	q := prqueue.New(prqueue.WithConcurrency(2))
//	defer q.Shutdown(context.Background())
//
//	pr, err := prqueue.Do(ctx, q, prqueue.High, func(ctx context.Context) (*PullRequest, *prqueue.RateInfo, error) {
//		return fetch(ctx)
//	})
package prqueue
