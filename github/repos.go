package github

import (
	"context"
	"fmt"
	"slices"
	"strings"

	gh "github.com/google/go-github/v62/github"

	"github.com/pagerguild/prqueue"
)

// GetRepository fetches one repository given as "owner/repo".
func (c *Client) GetRepository(ctx context.Context, fullName string) (*Repo, error) {
	owner, name, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}

	r, err := call(ctx, c, prqueue.Normal, func(ctx context.Context) (*gh.Repository, *gh.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, name)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s: %w", fullName, err)
	}
	repo := repoFromGH(r)
	return &repo, nil
}

// ListOrganizations returns the organizations of the authenticated user.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	orgs, err := call(ctx, c, prqueue.Normal, func(ctx context.Context) ([]*gh.Organization, *gh.Response, error) {
		return c.gh.Organizations.List(ctx, "", &gh.ListOptions{PerPage: 100})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	out := make([]Organization, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, Organization{
			Login:       o.GetLogin(),
			Description: o.GetDescription(),
			AvatarURL:   o.GetAvatarURL(),
		})
	}
	return out, nil
}

// ListOrgRepositories returns every repository of an organization that is
// not archived, sorted by name.
func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]Repo, error) {
	all, err := call(ctx, c, prqueue.Normal, func(ctx context.Context) ([]*gh.Repository, *gh.Response, error) {
		return paginate(ctx, func(ctx context.Context, page int) ([]*gh.Repository, *gh.Response, error) {
			return c.gh.Repositories.ListByOrg(ctx, org, &gh.RepositoryListByOrgOptions{
				Type:        "all",
				ListOptions: gh.ListOptions{PerPage: 100, Page: page},
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for %s: %w", org, err)
	}

	var repos []Repo
	for _, r := range all {
		if r.GetArchived() {
			continue
		}
		repos = append(repos, repoFromGH(r))
	}
	slices.SortFunc(repos, func(a, b Repo) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return repos, nil
}

// ListStarredRepositories returns the repositories starred by the
// authenticated user.
func (c *Client) ListStarredRepositories(ctx context.Context) ([]Repo, error) {
	starred, err := call(ctx, c, prqueue.Normal, func(ctx context.Context) ([]*gh.StarredRepository, *gh.Response, error) {
		return paginate(ctx, func(ctx context.Context, page int) ([]*gh.StarredRepository, *gh.Response, error) {
			return c.gh.Activity.ListStarred(ctx, "", &gh.ActivityListStarredOptions{
				ListOptions: gh.ListOptions{PerPage: 100, Page: page},
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list starred repositories: %w", err)
	}

	repos := make([]Repo, 0, len(starred))
	for _, s := range starred {
		repos = append(repos, repoFromGH(s.GetRepository()))
	}
	return repos, nil
}

// ListUserRepositories returns the repositories owned by the authenticated
// user.
func (c *Client) ListUserRepositories(ctx context.Context) ([]Repo, error) {
	all, err := call(ctx, c, prqueue.Normal, func(ctx context.Context) ([]*gh.Repository, *gh.Response, error) {
		return paginate(ctx, func(ctx context.Context, page int) ([]*gh.Repository, *gh.Response, error) {
			return c.gh.Repositories.ListByAuthenticatedUser(ctx, &gh.RepositoryListByAuthenticatedUserOptions{
				Type:        "owner",
				ListOptions: gh.ListOptions{PerPage: 100, Page: page},
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user repositories: %w", err)
	}

	repos := make([]Repo, 0, len(all))
	for _, r := range all {
		repos = append(repos, repoFromGH(r))
	}
	return repos, nil
}
