package moderation

import (
	"math"
	"strings"
	"unicode/utf8"
)

// QualityScore is a 0..1 heuristic of how genuine and well formed a
// submission looks. It does not affect severity; it drives auto-approval
// and the returned score (1 - quality).
func QualityScore(content string, rating int, verified bool) float64 {
	score := 0.5

	length := utf8.RuneCountInString(content)
	switch {
	case length >= 50 && length <= 500:
		score += 0.2
	case length > 500 && length <= 1000:
		score += 0.1
	case length < 20:
		score -= 0.3
	}

	switch {
	case rating >= 4:
		score += 0.2
	case rating > 0 && rating <= 2:
		score -= 0.1
	}

	if verified {
		score += 0.2
	}

	words := len(strings.Fields(content))
	switch {
	case words >= 10 && words <= 200:
		score += 0.1
	case words < 5:
		score -= 0.2
	}

	score = math.Max(0, math.Min(1, score))
	return math.Round(score*1e4) / 1e4
}
