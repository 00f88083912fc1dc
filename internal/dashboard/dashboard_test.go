package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pagerguild/prqueue/github"
)

type fakeSource struct {
	mu      sync.Mutex
	prs     map[string][]github.PRItem
	reviews map[int][]github.Review
	state   map[int]string
	failing map[string]bool // "list:<repo>", "checks:<number>"
	calls   []string
}

func (f *fakeSource) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSource) ListPullRequests(ctx context.Context, fullName string) ([]github.PRItem, error) {
	f.record("list " + fullName)
	if f.failing["list:"+fullName] {
		return nil, errors.New("404 Not Found")
	}
	return f.prs[fullName], nil
}

func (f *fakeSource) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PRDetail, error) {
	f.record(fmt.Sprintf("detail %d", number))
	return &github.PRDetail{Number: number, MergeableState: f.state[number]}, nil
}

func (f *fakeSource) LatestReviews(ctx context.Context, owner, repo string, number int) ([]github.Review, error) {
	f.record(fmt.Sprintf("reviews %d", number))
	return f.reviews[number], nil
}

func (f *fakeSource) GetChecks(ctx context.Context, owner, repo string, number int) (*github.CIStatus, error) {
	f.record(fmt.Sprintf("checks %d", number))
	if f.failing[fmt.Sprintf("checks:%d", number)] {
		return nil, errors.New("boom")
	}
	return &github.CIStatus{OverallStatus: "passing"}, nil
}

func pr(fullName string, number int) github.PRItem {
	owner, name, _ := github.SplitFullName(fullName)
	return github.PRItem{Number: number, Repo: github.Repo{Owner: owner, Name: name, FullName: fullName}}
}

func approved(login string) github.Review {
	return github.Review{Author: github.User{Login: login}, State: "APPROVED"}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad(t *testing.T) {
	src := &fakeSource{
		prs: map[string][]github.PRItem{
			"octo/api": {pr("octo/api", 1), pr("octo/api", 2)},
			"octo/web": {pr("octo/web", 3)},
		},
		reviews: map[int][]github.Review{
			1: {approved("alice"), approved("bob")},
			2: {approved("alice"), {Author: github.User{Login: "bob"}, State: "DISMISSED"}},
		},
		state: map[int]string{1: "clean", 2: "dirty", 3: "blocked"},
	}

	board, err := New(src, 2, discard()).Load(context.Background(), []string{"octo/api", "octo/web"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	type flags struct {
		Number         int
		Approvals      int
		NeedsApprovals bool
		Conflict       bool
	}
	var got []flags
	for _, r := range board.Rows {
		if r.Err != nil {
			t.Errorf("row %d error = %v", r.PR.Number, r.Err)
		}
		got = append(got, flags{r.PR.Number, r.Reviews.Approvals, r.NeedsApprovals, r.Conflict})
	}
	want := []flags{
		{Number: 1, Approvals: 2},
		{Number: 2, Approvals: 1, NeedsApprovals: true, Conflict: true},
		{Number: 3, Approvals: 0, NeedsApprovals: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if board.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}
	if n := len(src.calls); n != 2+3*3 {
		t.Errorf("made %d calls, want %d", n, 2+3*3)
	}
}

func TestLoad_PartialFailures(t *testing.T) {
	src := &fakeSource{
		prs: map[string][]github.PRItem{
			"octo/api": {pr("octo/api", 1)},
		},
		failing: map[string]bool{
			"list:octo/gone": true,
			"checks:1":       true,
		},
	}

	board, err := New(src, 0, discard()).Load(context.Background(), []string{"octo/gone", "octo/api"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := board.RepoErrors["octo/gone"]; !ok {
		t.Errorf("RepoErrors = %v, want entry for octo/gone", board.RepoErrors)
	}
	if len(board.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(board.Rows))
	}
	row := board.Rows[0]
	if row.Err == nil {
		t.Error("row error = nil, want the checks failure")
	}
	if row.Detail == nil {
		t.Error("detail missing although its lookup succeeded")
	}
	if !row.NeedsApprovals {
		t.Error("NeedsApprovals = false with no approvals and the default requirement")
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &cancelledSource{}
	if _, err := New(src, 2, discard()).Load(ctx, []string{"octo/api"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

type cancelledSource struct{ fakeSource }

func (c *cancelledSource) ListPullRequests(ctx context.Context, fullName string) ([]github.PRItem, error) {
	return nil, ctx.Err()
}
