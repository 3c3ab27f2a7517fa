package moderation

import (
	"context"
	"strings"
)

// AIVerdict is an external classifier's opinion of a text.
type AIVerdict struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories"`
}

// Classifier is an optional external content classifier. A nil verdict with
// a nil error means the classifier had nothing to say.
type Classifier interface {
	Classify(ctx context.Context, text string) (*AIVerdict, error)
}

// severeAICategories force a rejection; any other flagged category only
// flags the submission for review.
var severeAICategories = map[string]bool{
	"hate":                   true,
	"hate/threatening":       true,
	"harassment/threatening": true,
	"sexual/minors":          true,
	"self-harm/intent":       true,
	"self-harm/instructions": true,
	"violence/graphic":       true,
	"illicit/violent":        true,
}

// IsSevereAICategory reports whether category forces a rejection.
func IsSevereAICategory(category string) bool {
	return severeAICategories[strings.ToLower(strings.TrimSpace(category))]
}

// Outcome converts the verdict into the classifier check's contribution.
func (v AIVerdict) Outcome() Outcome {
	out := Outcome{Check: "ai_classifier"}
	if !v.Flagged {
		return out
	}
	out.Severity = SeverityFlagged
	for _, c := range v.Categories {
		if IsSevereAICategory(c) {
			out.Severity = SeverityRejected
			break
		}
	}
	issue := "flagged by AI moderation"
	if len(v.Categories) > 0 {
		issue += ": " + strings.Join(v.Categories, ", ")
	}
	out.Issues = []string{issue}
	return out
}
