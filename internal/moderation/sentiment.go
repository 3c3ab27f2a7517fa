package moderation

import (
	"fmt"
	"math"
	"strings"
)

// Bucket is the coarse sentiment class of a text.
type Bucket string

const (
	BucketVeryNegative Bucket = "very_negative"
	BucketNegative     Bucket = "negative"
	BucketNeutral      Bucket = "neutral"
	BucketPositive     Bucket = "positive"
	BucketVeryPositive Bucket = "very_positive"
)

// Keyword tier weights. Negative tiers pull the score down, the positive
// tier pushes it up; a negator in the window flips the sign.
const (
	weightSevereNegative   = 0.4
	weightStrongNegative   = 0.25
	weightModerateNegative = 0.15
	weightPositive         = 0.2

	negationWindow = 3
)

// SentimentReport is the result of scoring a text.
type SentimentReport struct {
	Score         float64
	Bucket        Bucket
	NegativeTerms []string
	PositiveTerms []string
}

type sentimentTier struct {
	words  map[string]bool
	weight float64 // signed: negative tiers carry a negative weight
}

// SentimentAnalyzer scores text with negation-aware weighted keywords.
type SentimentAnalyzer struct {
	tiers    []sentimentTier
	negators map[string]bool
}

// NewSentimentAnalyzer builds an analyzer over the sentiment tiers of lex.
func NewSentimentAnalyzer(lex *Lexicon) *SentimentAnalyzer {
	return &SentimentAnalyzer{
		tiers: []sentimentTier{
			{words: toSet(lex.SevereNegative), weight: -weightSevereNegative},
			{words: toSet(lex.StrongNegative), weight: -weightStrongNegative},
			{words: toSet(lex.ModerateNegative), weight: -weightModerateNegative},
			{words: toSet(lex.Positive), weight: weightPositive},
		},
		negators: toSet(lex.Negators),
	}
}

// Analyze scores text into [-1, 1] and buckets the score.
func (a *SentimentAnalyzer) Analyze(text string) SentimentReport {
	tokens := trimTokens(strings.Fields(strings.ToLower(text)))

	var report SentimentReport
	score := 0.0
	for _, tier := range a.tiers {
		for i, tok := range tokens {
			if !tier.words[tok] {
				continue
			}
			contribution := tier.weight
			if a.negated(tokens, i) {
				contribution = -contribution
			}
			score += contribution
			if contribution < 0 {
				report.NegativeTerms = append(report.NegativeTerms, tok)
			} else {
				report.PositiveTerms = append(report.PositiveTerms, tok)
			}
		}
	}

	score = math.Max(-1, math.Min(1, score))
	report.Score = math.Round(score*1e4) / 1e4
	report.Bucket = bucketFor(report.Score)
	return report
}

// negated reports whether one of the tokens before position i is a negator.
func (a *SentimentAnalyzer) negated(tokens []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if a.negators[tokens[j]] {
			return true
		}
	}
	return false
}

func bucketFor(score float64) Bucket {
	switch {
	case score <= -0.6:
		return BucketVeryNegative
	case score <= -0.2:
		return BucketNegative
	case score >= 0.4:
		return BucketVeryPositive
	case score >= 0.1:
		return BucketPositive
	default:
		return BucketNeutral
	}
}

// Outcome converts the report into the sentiment check's contribution.
// Positive sentiment never raises severity; it only leaves a note.
func (r SentimentReport) Outcome() Outcome {
	out := Outcome{Check: "sentiment"}
	switch r.Bucket {
	case BucketVeryNegative:
		out.Severity = SeverityRejected
		out.Issues = []string{fmt.Sprintf("very negative sentiment detected (score %.2f)", r.Score)}
	case BucketNegative:
		out.Severity = SeverityFlagged
		out.Issues = []string{fmt.Sprintf("negative sentiment detected (score %.2f)", r.Score)}
	case BucketPositive, BucketVeryPositive:
		out.Notes = []string{"positive sentiment detected"}
	}
	return out
}
