package github

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLatestByAuthor(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	review := func(login, state string, offset time.Duration) Review {
		return Review{Author: User{Login: login}, State: state, SubmittedAt: t0.Add(offset)}
	}

	tests := []struct {
		name    string
		reviews []Review
		want    []Review
	}{
		{
			name: "no reviews",
		},
		{
			name: "newer review replaces older",
			reviews: []Review{
				review("alice", "CHANGES_REQUESTED", 0),
				review("alice", "APPROVED", time.Hour),
			},
			want: []Review{review("alice", "APPROVED", time.Hour)},
		},
		{
			name: "out of order input keeps the newest",
			reviews: []Review{
				review("alice", "APPROVED", time.Hour),
				review("alice", "COMMENTED", 0),
			},
			want: []Review{review("alice", "APPROVED", time.Hour)},
		},
		{
			name: "authors keep first seen order",
			reviews: []Review{
				review("bob", "COMMENTED", 0),
				review("alice", "APPROVED", time.Minute),
				review("bob", "APPROVED", time.Hour),
			},
			want: []Review{
				review("bob", "APPROVED", time.Hour),
				review("alice", "APPROVED", time.Minute),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, LatestByAuthor(tt.reviews)); diff != "" {
				t.Errorf("LatestByAuthor() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	latest := []Review{
		{Author: User{Login: "alice"}, State: "APPROVED"},
		{Author: User{Login: "bob"}, State: "DISMISSED"},
		{Author: User{Login: "carol"}, State: "CHANGES_REQUESTED"},
		{Author: User{Login: "dave"}, State: "APPROVED"},
	}

	got := Summarize(latest)
	want := ReviewSummary{
		Reviews: []Review{
			{Author: User{Login: "alice"}, State: "APPROVED"},
			{Author: User{Login: "carol"}, State: "CHANGES_REQUESTED"},
			{Author: User{Login: "dave"}, State: "APPROVED"},
		},
		Approvals: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
	}
}
