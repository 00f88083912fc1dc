package github

import "time"

// Repo identifies a GitHub repository.
type Repo struct {
	Owner         string
	Name          string
	FullName      string
	Description   string
	HTMLURL       string
	DefaultBranch string
	Private       bool
	Archived      bool
	Stars         int
	UpdatedAt     time.Time
}

// User represents a GitHub user.
type User struct {
	Login     string
	AvatarURL string
}

// Organization is an organization the authenticated user belongs to.
type Organization struct {
	Login       string
	Description string
	AvatarURL   string
}

// Label represents a PR or issue label.
type Label struct {
	Name  string
	Color string
}

// PRItem is a lightweight PR representation for list views.
type PRItem struct {
	ID        int64
	Number    int
	Title     string
	HTMLURL   string
	Repo      Repo
	Author    User
	Labels    []Label
	Draft     bool
	CreatedAt time.Time
}

// PRDetail is the full PR representation including merge state.
type PRDetail struct {
	Number         int
	Title          string
	HTMLURL        string
	Author         User
	Repo           Repo
	BaseBranch     string
	HeadBranch     string
	HeadSHA        string
	Draft          bool
	Mergeable      bool
	MergeableState string // "clean", "dirty", "blocked", "behind", "unstable", "unknown"
}

// HasConflict reports whether GitHub found merge conflicts with the base
// branch.
func (d *PRDetail) HasConflict() bool {
	return d.MergeableState == "dirty"
}

// CICheck represents an individual CI check run.
type CICheck struct {
	ID         int64
	Name       string
	Status     string // "queued", "in_progress", "completed"
	Conclusion string // "success", "failure", "neutral", "cancelled", "skipped", "timed_out", "action_required"
	HTMLURL    string
}

// CIStatus is the aggregate CI status for a commit.
type CIStatus struct {
	TotalCount    int
	Checks        []CICheck
	OverallStatus string // "passing", "failing", "pending", "mixed"
}

// Review represents an individual PR review.
type Review struct {
	ID          int64
	Author      User
	State       string // "APPROVED", "CHANGES_REQUESTED", "COMMENTED", "DISMISSED", "PENDING"
	SubmittedAt time.Time
}

// ReviewSummary is the latest review of every reviewer, dismissed reviews
// left out.
type ReviewSummary struct {
	Reviews   []Review
	Approvals int
}

// Issue is an open issue. Pull requests are never returned as issues.
type Issue struct {
	Number    int
	Title     string
	HTMLURL   string
	Author    User
	Labels    []Label
	Comments  int
	CreatedAt time.Time
}
