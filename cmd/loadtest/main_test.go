package main

import "testing"

func TestCycles(t *testing.T) {
	n := len(samples)
	tests := []struct {
		count, want int
	}{
		{0, 1},
		{1, 1},
		{n, 1},
		{n + 1, 2},
		{3 * n, 3},
	}
	for _, tt := range tests {
		if got := cycles(tt.count); got != tt.want {
			t.Errorf("cycles(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestAssignment_NoRepeatedSampleWithinProject(t *testing.T) {
	const count = 1000
	seen := make(map[int]map[string]bool)
	for i := 0; i < count; i++ {
		project, content := assignment(i)
		if project >= cycles(count) {
			t.Fatalf("assignment(%d) project = %d, only %d projects exist", i, project, cycles(count))
		}
		if seen[project] == nil {
			seen[project] = make(map[string]bool)
		}
		if seen[project][content] {
			t.Fatalf("project %d got %q twice", project, content)
		}
		seen[project][content] = true
	}
}
