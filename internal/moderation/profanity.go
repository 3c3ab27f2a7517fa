package moderation

import (
	"regexp"
	"strings"
)

// Intensity grades the worst profanity found.
type Intensity string

const (
	IntensityNone   Intensity = "none"
	IntensityMild   Intensity = "mild"
	IntensitySevere Intensity = "severe"
)

// ProfanityReport lists the lexicon terms found in a text.
type ProfanityReport struct {
	Found     bool
	Terms     []string
	Intensity Intensity
}

type lexiconTerm struct {
	word    string
	pattern *regexp.Regexp
}

// ProfanityDetector matches normalised text against the profanity tiers of
// a Lexicon. Patterns are compiled once; Detect is safe for concurrent use.
type ProfanityDetector struct {
	severe []lexiconTerm
	mild   []lexiconTerm
}

// NewProfanityDetector compiles the profanity tiers of lex.
func NewProfanityDetector(lex *Lexicon) *ProfanityDetector {
	return &ProfanityDetector{
		severe: compileTerms(lex.SevereProfanity),
		mild:   compileTerms(lex.MildProfanity),
	}
}

func compileTerms(words []string) []lexiconTerm {
	terms := make([]lexiconTerm, 0, len(words))
	for _, w := range words {
		if p := termPattern(w); p != nil {
			terms = append(terms, lexiconTerm{word: strings.ToLower(strings.TrimSpace(w)), pattern: p})
		}
	}
	return terms
}

// termPattern builds \bterm\b over the normalised spelling of word. Each
// character may repeat, since run folding leaves doubled letters behind
// ("biiiitch" normalises to "biitch").
func termPattern(word string) *regexp.Regexp {
	norm := Normalize(word)
	if norm == "" {
		return nil
	}
	var b strings.Builder
	b.WriteString(`\b`)
	for _, r := range norm {
		if r == ' ' {
			b.WriteString(`\s+`)
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
		b.WriteByte('+')
	}
	b.WriteString(`\b`)
	return regexp.MustCompile(b.String())
}

// Detect reports the profanity in text for the given strictness. STRICT
// checks the severe and mild tiers, MODERATE only the severe tier and
// LENIENT neither; custom terms are always checked.
func (d *ProfanityDetector) Detect(text string, level ProfanityLevel, custom []string) ProfanityReport {
	report := ProfanityReport{Intensity: IntensityNone}
	normalized := Normalize(text)
	if normalized == "" {
		return report
	}

	var tiers [][]lexiconTerm
	switch level {
	case ProfanityStrict:
		tiers = append(tiers, d.severe, d.mild)
	case ProfanityModerate:
		tiers = append(tiers, d.severe)
	}
	tiers = append(tiers, compileTerms(custom))

	seen := make(map[string]bool)
	for _, tier := range tiers {
		for _, term := range tier {
			if seen[term.word] || !term.pattern.MatchString(normalized) {
				continue
			}
			seen[term.word] = true
			report.Terms = append(report.Terms, term.word)
			if d.isSevere(term.word) {
				report.Intensity = IntensitySevere
			} else if report.Intensity == IntensityNone {
				report.Intensity = IntensityMild
			}
		}
	}
	report.Found = len(report.Terms) > 0
	return report
}

func (d *ProfanityDetector) isSevere(word string) bool {
	for _, t := range d.severe {
		if t.word == word {
			return true
		}
	}
	return false
}

// Outcome converts the report into the profanity check's contribution.
func (r ProfanityReport) Outcome() Outcome {
	out := Outcome{Check: "profanity"}
	switch r.Intensity {
	case IntensitySevere:
		out.Severity = SeverityRejected
		out.Issues = []string{"severe profanity detected: " + strings.Join(r.Terms, ", ")}
	case IntensityMild:
		out.Severity = SeverityFlagged
		out.Issues = []string{"profanity detected: " + strings.Join(r.Terms, ", ")}
	}
	return out
}
