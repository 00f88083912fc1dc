// Package github is the API access layer of the dashboard. Every call is
// submitted through a prqueue.Queue so that it shares the token's rate
// budget with all other calls.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v62/github"

	"github.com/pagerguild/prqueue"
)

// Client issues GitHub REST calls through a dispatch queue.
type Client struct {
	q  *prqueue.Queue
	gh *gh.Client
}

// Option configures a Client.
type Option func(*gh.Client) error

// WithBaseURL points the client at a GitHub Enterprise server, for example
// "https://github.example.com/api/v3/".
func WithBaseURL(raw string) Option {
	return func(c *gh.Client) error {
		if raw == "" {
			return nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse base url %q: %w", raw, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.BaseURL = u
		return nil
	}
}

// New creates a Client. httpClient carries authentication; see
// NewTokenClient and AppsTransport.
func New(q *prqueue.Queue, httpClient *http.Client, opts ...Option) (*Client, error) {
	c := gh.NewClient(httpClient)
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return &Client{q: q, gh: c}, nil
}

// Authenticated returns the user the token belongs to. It is used to
// validate credentials at startup and deliberately bypasses the queue.
func (c *Client) Authenticated(ctx context.Context) (*User, error) {
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}
	user := userFromGH(u)
	return &user, nil
}

// call runs fn as one queued operation.
func call[T any](ctx context.Context, c *Client, p prqueue.Priority, fn func(ctx context.Context) (T, *gh.Response, error)) (T, error) {
	return prqueue.Do(ctx, c.q, p, func(ctx context.Context) (T, *prqueue.RateInfo, error) {
		v, resp, err := fn(ctx)
		return v, rateInfo(resp), classify(err)
	})
}

// paginate collects every page of a list call into one slice.
func paginate[T any](ctx context.Context, list func(ctx context.Context, page int) ([]T, *gh.Response, error)) ([]T, *gh.Response, error) {
	var all []T
	page := 0
	for {
		items, resp, err := list(ctx, page)
		if err != nil {
			return nil, resp, err
		}
		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			return all, resp, nil
		}
		page = resp.NextPage
	}
}

// SplitFullName splits "owner/repo".
func SplitFullName(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository name %q, want owner/repo", fullName)
	}
	return owner, repo, nil
}

func userFromGH(u *gh.User) User {
	if u == nil {
		return User{}
	}
	return User{
		Login:     u.GetLogin(),
		AvatarURL: u.GetAvatarURL(),
	}
}

func labelsFromGH(labels []*gh.Label) []Label {
	if len(labels) == 0 {
		return nil
	}
	out := make([]Label, 0, len(labels))
	for _, l := range labels {
		out = append(out, Label{Name: l.GetName(), Color: l.GetColor()})
	}
	return out
}

func repoFromGH(r *gh.Repository) Repo {
	if r == nil {
		return Repo{}
	}
	return Repo{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		HTMLURL:       r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		Archived:      r.GetArchived(),
		Stars:         r.GetStargazersCount(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}
}
