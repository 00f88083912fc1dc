package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pagerguild/prqueue"
	"github.com/pagerguild/prqueue/github"
	"github.com/pagerguild/prqueue/internal/dashboard"
)

func TestRenderBoard(t *testing.T) {
	board := &dashboard.Board{
		Rows: []dashboard.Row{
			{
				PR: github.PRItem{
					Number: 7,
					Title:  "Refactor the queue",
					Repo:   github.Repo{FullName: "octo/api"},
					Author: github.User{Login: "alice"},
					Draft:  true,
				},
				Reviews:        github.ReviewSummary{Approvals: 1},
				Checks:         &github.CIStatus{OverallStatus: "failing"},
				NeedsApprovals: true,
				Conflict:       true,
			},
			{
				PR:  github.PRItem{Number: 8, Repo: github.Repo{FullName: "octo/api"}},
				Err: errors.New("boom"),
			},
		},
		LoadedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
	stats := prqueue.Stats{Budget: prqueue.RateInfo{Limit: 5000, Remaining: 4200, Reset: time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)}}

	var buf bytes.Buffer
	if err := renderBoard(&buf, board, stats); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"octo/api", "#7", "Refactor the queue", "alice", "failing",
		"draft,needs-approvals,conflict",
		"incomplete",
		"rate budget 4200/5000, resets 13:00:00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderBoard_RepoErrorsSorted(t *testing.T) {
	board := &dashboard.Board{
		RepoErrors: map[string]error{
			"octo/web":  errors.New("not found"),
			"acme/api":  errors.New("forbidden"),
			"octo/docs": errors.New("timeout"),
		},
	}

	for range 5 {
		var buf bytes.Buffer
		if err := renderBoard(&buf, board, prqueue.Stats{Budget: prqueue.RateInfo{Remaining: -1}}); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		api, docs, web := strings.Index(out, "acme/api: forbidden"), strings.Index(out, "octo/docs: timeout"), strings.Index(out, "octo/web: not found")
		if api < 0 || docs < 0 || web < 0 || api > docs || docs > web {
			t.Fatalf("repo errors not listed in order:\n%s", out)
		}
	}
}

func TestRenderBudget(t *testing.T) {
	tests := []struct {
		name     string
		budget   prqueue.RateInfo
		requests int
		want     string
	}{
		{name: "unknown", budget: prqueue.RateInfo{Remaining: -1}, want: "rate budget unknown\n"},
		{name: "secondary", budget: prqueue.RateInfo{Limit: 5000, Remaining: 10, RetryAfter: 30 * time.Second}, want: "rate budget 10/5000, secondary limit for 30s\n"},
		{name: "requests in flight", budget: prqueue.RateInfo{Remaining: -1}, requests: 3, want: "rate budget unknown, 3 requests in flight\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := renderBudget(&buf, prqueue.Stats{Budget: tt.budget, Requests: tt.requests}); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("renderBudget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate() = %q, want %q", got, "abcd…")
	}
}
