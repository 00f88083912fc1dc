package github

import "testing"

func TestComputeOverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks []CICheck
		want   string
	}{
		{
			name:   "no checks returns pending",
			checks: nil,
			want:   "pending",
		},
		{
			name: "all passing",
			checks: []CICheck{
				{Name: "lint", Status: "completed", Conclusion: "success"},
				{Name: "test", Status: "completed", Conclusion: "success"},
			},
			want: "passing",
		},
		{
			name: "all failing",
			checks: []CICheck{
				{Name: "lint", Status: "completed", Conclusion: "failure"},
				{Name: "test", Status: "completed", Conclusion: "timed_out"},
			},
			want: "failing",
		},
		{
			name: "mixed success and failure",
			checks: []CICheck{
				{Name: "lint", Status: "completed", Conclusion: "success"},
				{Name: "test", Status: "completed", Conclusion: "failure"},
			},
			want: "mixed",
		},
		{
			name: "pending overrides everything",
			checks: []CICheck{
				{Name: "lint", Status: "completed", Conclusion: "failure"},
				{Name: "test", Status: "in_progress"},
			},
			want: "pending",
		},
		{
			name: "skipped and neutral count as success",
			checks: []CICheck{
				{Name: "optional", Status: "completed", Conclusion: "skipped"},
				{Name: "info", Status: "completed", Conclusion: "neutral"},
			},
			want: "passing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeOverallStatus(tt.checks); got != tt.want {
				t.Errorf("computeOverallStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
