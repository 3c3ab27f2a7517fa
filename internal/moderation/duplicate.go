package moderation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DuplicateReport describes the first corpus entry the text duplicates.
// MatchedIndex is -1 when nothing matched.
type DuplicateReport struct {
	IsDuplicate  bool
	MatchedIndex int
	Similarity   float64
}

// CheckDuplicate compares text against existing and reports the first
// entry that is identical after lowercasing and trimming, or whose
// normalised edit-distance similarity reaches threshold.
func CheckDuplicate(text string, existing []string, threshold float64) DuplicateReport {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDuplicateSimilarityThreshold
	}
	candidate := strings.ToLower(strings.TrimSpace(text))
	for i, e := range existing {
		other := strings.ToLower(strings.TrimSpace(e))
		if candidate == other {
			return DuplicateReport{IsDuplicate: true, MatchedIndex: i, Similarity: 1}
		}
	}
	for i, e := range existing {
		other := strings.ToLower(strings.TrimSpace(e))
		if sim := Similarity(candidate, other); sim >= threshold {
			return DuplicateReport{IsDuplicate: true, MatchedIndex: i, Similarity: sim}
		}
	}
	return DuplicateReport{MatchedIndex: -1}
}

// Similarity is (maxLen - editDistance) / maxLen over runes. Two empty
// strings are identical.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return float64(longest-EditDistance(a, b)) / float64(longest)
}

// EditDistance is the Levenshtein distance between a and b in runes.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Outcome converts the report into the duplicate check's contribution.
func (r DuplicateReport) Outcome() Outcome {
	out := Outcome{Check: "duplicate"}
	if r.IsDuplicate {
		out.Severity = SeverityRejected
		out.Issues = []string{fmt.Sprintf("duplicate content detected (similarity %.2f)", r.Similarity)}
	}
	return out
}
