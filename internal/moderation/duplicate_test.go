package moderation

import (
	"strings"
	"testing"
)

const reviewBase = "the service was quick and the staff were very kind"

// nearCopy substitutes four characters of reviewBase, giving an edit
// distance of 4 over 50 runes.
func nearCopy() string {
	r := []rune(reviewBase)
	for _, i := range []int{4, 15, 30, 45} {
		r[i] = 'x'
	}
	return string(r)
}

func TestCheckDuplicate(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		existing   []string
		threshold  float64
		duplicate  bool
		index      int
		similarity float64
	}{
		{"exact after trim and case", "Great product!", []string{"other", "  great PRODUCT! "}, 0.9, true, 1, 1},
		{"near copy", reviewBase, []string{nearCopy()}, 0.9, true, 0, 0.92},
		{"near copy below strict threshold", reviewBase, []string{nearCopy()}, 0.95, false, -1, 0},
		{"default threshold", reviewBase, []string{nearCopy()}, 0, true, 0, 0.92},
		{"unrelated", "completely different text here", []string{reviewBase}, 0.9, false, -1, 0},
		{"empty corpus", reviewBase, nil, 0.9, false, -1, 0},
		{"first match wins", reviewBase, []string{"nothing alike", nearCopy(), reviewBase + "!"}, 0.9, true, 1, 0.92},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CheckDuplicate(tt.text, tt.existing, tt.threshold)
			if r.IsDuplicate != tt.duplicate {
				t.Fatalf("IsDuplicate = %v, want %v", r.IsDuplicate, tt.duplicate)
			}
			if r.MatchedIndex != tt.index {
				t.Errorf("MatchedIndex = %d, want %d", r.MatchedIndex, tt.index)
			}
			if r.Similarity != tt.similarity {
				t.Errorf("Similarity = %v, want %v", r.Similarity, tt.similarity)
			}
		})
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"", "", 0},
		{"flaw", "lawn", 2},
		{"héllo", "hello", 1},
		{"café ☕", "cafe", 3},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		if got := EditDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{reviewBase, nearCopy()},
		{"", "abc"},
		{"short", strings.Repeat("long text ", 10)},
		{"日本語", "日本"},
	}

	for _, p := range pairs {
		ab, ba := Similarity(p[0], p[1]), Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %v but reversed = %v", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("Similarity(%q, %q) = %v, outside [0,1]", p[0], p[1], ab)
		}
	}
}

func TestDuplicateOutcome(t *testing.T) {
	out := DuplicateReport{IsDuplicate: true, Similarity: 0.92}.Outcome()
	if out.Severity != SeverityRejected {
		t.Errorf("Severity = %v, want %v", out.Severity, SeverityRejected)
	}
	if len(out.Issues) != 1 || out.Issues[0] != "duplicate content detected (similarity 0.92)" {
		t.Errorf("Issues = %v", out.Issues)
	}

	out = DuplicateReport{MatchedIndex: -1}.Outcome()
	if out.Severity != SeverityPending || len(out.Issues) != 0 {
		t.Errorf("non-duplicate Outcome() = %+v, want no contribution", out)
	}
}

func BenchmarkCheckDuplicate(b *testing.B) {
	corpus := make([]string, 200)
	for i := range corpus {
		corpus[i] = strings.Repeat("an ordinary testimonial about the product ", 3)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CheckDuplicate(reviewBase, corpus, 0.9)
	}
}
