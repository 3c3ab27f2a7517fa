package moderation

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// urlPattern matches http/https links. Compiled once at package init and
// safe for concurrent use.
var urlPattern = regexp.MustCompile(`(?i)https?://\S+`)

// Pronoun sets for the promotional-language heuristic.
var (
	secondPerson = toSet([]string{"you", "your", "yours", "yourself", "yourselves", "you're", "youre", "u", "ur"})
	firstPerson  = toSet([]string{"i", "me", "my", "mine", "myself", "we", "us", "our", "ours", "ourselves", "i'm", "im", "i've", "ive"})
)

// spamInput is the per-call view every heuristic reads from.
type spamInput struct {
	text   string
	lower  string
	words  []string // whitespace split of lower
	tokens []string // words trimmed of surrounding punctuation
	sub    Submission
	cfg    Config
}

// spamCheck pairs a heuristic with its name for metrics and tests. match
// returns the indicator text when the heuristic fires.
type spamCheck struct {
	name  string
	match func(d *SpamDetector, in spamInput) (string, bool)
}

// spamChecks run in this order and all of them always run.
var spamChecks = []spamCheck{
	{name: "phrase", match: (*SpamDetector).matchPhrases},
	{name: "url_count", match: matchURLCount},
	{name: "url_domain", match: matchURLDomain},
	{name: "capitals", match: matchCapitals},
	{name: "special_chars", match: matchSpecialChars},
	{name: "char_flood", match: matchCharFlood},
	{name: "disposable_email", match: (*SpamDetector).matchDisposableEmail},
	{name: "promotional", match: matchPromotional},
	{name: "rating_deviation", match: matchRatingDeviation},
	{name: "brand_mentions", match: matchBrandMentions},
	{name: "superlatives", match: (*SpamDetector).matchSuperlatives},
}

// SpamReport lists the spam indicators that fired. Two or more indicators
// make the submission spam.
type SpamReport struct {
	Indicators []string
	IsSpam     bool
}

// SpamDetector runs the spam heuristics. It is immutable after
// construction and safe for concurrent use.
type SpamDetector struct {
	phrases    []string
	matcher    *ahocorasick.Matcher
	disposable map[string]bool
	extreme    map[string]bool
}

// NewSpamDetector builds a detector over the spam tables of lex.
func NewSpamDetector(lex *Lexicon) *SpamDetector {
	phrases := make([]string, 0, len(lex.SpamPhrases))
	for _, p := range lex.SpamPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &SpamDetector{
		phrases:    phrases,
		matcher:    ahocorasick.NewStringMatcher(phrases),
		disposable: toSet(lex.DisposableDomains),
		extreme:    toSet(lex.ExtremePositive),
	}
}

// Analyze runs every heuristic over the submission.
func (d *SpamDetector) Analyze(sub Submission, cfg Config) SpamReport {
	lower := strings.ToLower(sub.Content)
	words := strings.Fields(lower)
	in := spamInput{
		text:   sub.Content,
		lower:  lower,
		words:  words,
		tokens: trimTokens(words),
		sub:    sub,
		cfg:    cfg.WithDefaults(),
	}

	var report SpamReport
	for _, sc := range spamChecks {
		if indicator, ok := sc.match(d, in); ok {
			report.Indicators = append(report.Indicators, indicator)
		}
	}
	report.IsSpam = len(report.Indicators) >= 2
	return report
}

// Outcome converts the report into the spam check's contribution.
func (r SpamReport) Outcome() Outcome {
	out := Outcome{Check: "spam", Issues: r.Indicators}
	switch {
	case r.IsSpam:
		out.Severity = SeverityRejected
	case len(r.Indicators) == 1:
		out.Severity = SeverityFlagged
	}
	return out
}

func (d *SpamDetector) matchPhrases(in spamInput) (string, bool) {
	if len(d.phrases) == 0 || in.lower == "" {
		return "", false
	}
	hits := d.matcher.MatchThreadSafe([]byte(in.lower))
	if len(hits) == 0 {
		return "", false
	}
	seen := make(map[int]bool, len(hits))
	found := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h] {
			seen[h] = true
			found = append(found, d.phrases[h])
		}
	}
	return "contains spam phrases: " + strings.Join(found, ", "), true
}

func extractURLs(text string) []string {
	raw := urlPattern.FindAllString(text, -1)
	for i, u := range raw {
		raw[i] = strings.TrimRight(u, ".,;:!?)]}\"'")
	}
	return raw
}

func matchURLCount(_ *SpamDetector, in spamInput) (string, bool) {
	n := len(extractURLs(in.text))
	if n > in.cfg.MaxURLCount {
		return fmt.Sprintf("too many links (%d > %d)", n, in.cfg.MaxURLCount), true
	}
	return "", false
}

func matchURLDomain(_ *SpamDetector, in spamInput) (string, bool) {
	if len(in.cfg.AllowedDomains) == 0 {
		return "", false
	}
	var disallowed []string
	for _, raw := range extractURLs(in.text) {
		host := urlHost(raw)
		if host == "" || !domainAllowed(host, in.cfg.AllowedDomains) {
			if host == "" {
				host = raw
			}
			disallowed = append(disallowed, host)
		}
	}
	if len(disallowed) == 0 {
		return "", false
	}
	return "links to disallowed domain: " + strings.Join(disallowed, ", "), true
}

func urlHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func domainAllowed(host string, allowed []string) bool {
	for _, a := range allowed {
		a = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(a)), "www.")
		if a != "" && (host == a || strings.HasSuffix(host, "."+a)) {
			return true
		}
	}
	return false
}

func matchCapitals(_ *SpamDetector, in spamInput) (string, bool) {
	letters, upper := 0, 0
	for _, r := range in.text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 20 && float64(upper)/float64(letters) > 0.8 {
		return "excessive capitalization", true
	}
	return "", false
}

func matchSpecialChars(_ *SpamDetector, in spamInput) (string, bool) {
	total, special := 0, 0
	for _, r := range in.text {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	if total > 20 && float64(special)/float64(total) > 0.3 {
		return "excessive special characters", true
	}
	return "", false
}

func matchCharFlood(_ *SpamDetector, in spamInput) (string, bool) {
	if hasCharFlood(in.text, 6) {
		return "repeated characters", true
	}
	return "", false
}

// hasCharFlood returns true if text contains threshold or more consecutive
// identical characters. RE2 has no backreferences, so this is a linear scan.
func hasCharFlood(text string, threshold int) bool {
	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

func (d *SpamDetector) matchDisposableEmail(in spamInput) (string, bool) {
	domain := emailDomain(in.sub.AuthorEmail)
	if domain != "" && d.disposable[domain] {
		return "disposable email domain: " + domain, true
	}
	return "", false
}

func matchPromotional(_ *SpamDetector, in spamInput) (string, bool) {
	second, first := 0, 0
	for _, t := range in.tokens {
		switch {
		case secondPerson[t]:
			second++
		case firstPerson[t]:
			first++
		}
	}
	if second < 3 {
		return "", false
	}
	ratio := math.Inf(1)
	if first > 0 {
		ratio = float64(second) / float64(first)
	}
	if ratio > 0.6 {
		return "promotional language", true
	}
	return "", false
}

func matchRatingDeviation(_ *SpamDetector, in spamInput) (string, bool) {
	if in.sub.Rating <= 0 || in.cfg.AverageRating == nil {
		return "", false
	}
	avg := *in.cfg.AverageRating
	if math.Abs(float64(in.sub.Rating)-avg) > 2 {
		return fmt.Sprintf("rating deviates from project average (%d vs %.2f)", in.sub.Rating, avg), true
	}
	return "", false
}

func matchBrandMentions(_ *SpamDetector, in spamInput) (string, bool) {
	if len(in.cfg.BrandKeywords) == 0 || len(in.words) == 0 {
		return "", false
	}
	mentions := 0
	for _, kw := range in.cfg.BrandKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.ContainsAny(kw, " \t") {
			mentions += strings.Count(in.lower, kw)
			continue
		}
		for _, t := range in.tokens {
			if t == kw {
				mentions++
			}
		}
	}
	if mentions >= 3 && float64(mentions)/float64(len(in.words)) > 0.15 {
		return "excessive brand mentions", true
	}
	return "", false
}

func (d *SpamDetector) matchSuperlatives(in spamInput) (string, bool) {
	if len(in.words) >= 50 {
		return "", false
	}
	n := 0
	for _, t := range in.tokens {
		if d.extreme[t] {
			n++
		}
	}
	if n >= 3 {
		return "unnatural sentiment: too many superlatives", true
	}
	return "", false
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = true
		}
	}
	return set
}

// trimTokens strips leading and trailing punctuation from each word,
// dropping words that were punctuation only.
func trimTokens(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		t := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
