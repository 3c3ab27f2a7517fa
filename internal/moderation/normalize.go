package moderation

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// leetTable maps lookalike characters onto the letter they stand in for.
var leetTable = map[rune]rune{
	'@': 'a', '4': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'$': 's', '5': 's',
	'7': 't', '+': 't',
}

// accentPool holds transformer chains that strip diacritics (é -> e).
// Chains carry state, so each call takes its own.
var accentPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

// Normalize canonicalises text for lexicon matching so that common
// obfuscations (leetspeak, stretched letters, spaced-out words, accents)
// collapse onto the plain spelling. Steps, in order:
//
//  1. lowercase
//  2. fold runs of 3+ identical characters down to 2
//  3. strip accents and replace lookalike characters
//  4. join single characters split by '.', '_', '-' or spaces (f.u.c.k)
//  5. drop everything that is not a letter, digit or single space
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ToLower(strings.ToValidUTF8(text, ""))
	s = foldRuns(s)
	s = foldLookalikes(s)
	s = joinSpelledOut(s)
	return stripSymbols(s)
}

func foldRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev, run := rune(-1), 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// foldLookalikes strips accents and replaces lookalike characters. Digits
// always fold; symbols fold only when a word character follows them in the
// same token, so "$h!t" becomes "shit" but a trailing "shit!" keeps its
// punctuation for stripSymbols to drop.
func foldLookalikes(s string) string {
	tr := accentPool.Get().(transform.Transformer)
	folded, _, err := transform.String(tr, s)
	tr.Reset()
	accentPool.Put(tr)
	if err != nil {
		folded = s
	}

	rs := []rune(folded)
	wordAhead := make([]bool, len(rs))
	ahead := false
	for i := len(rs) - 1; i >= 0; i-- {
		wordAhead[i] = ahead
		switch {
		case unicode.IsSpace(rs[i]):
			ahead = false
		case isWordRune(rs[i]):
			ahead = true
		}
	}

	var b strings.Builder
	b.Grow(len(folded))
	for i, r := range rs {
		if sub, ok := leetTable[r]; ok && (unicode.IsDigit(r) || wordAhead[i]) {
			r = sub
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSeparator(r rune) bool {
	return r == '.' || r == '_' || r == '-' || unicode.IsSpace(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isLoneChar reports whether rs[i] is a word character with no word
// characters on either side.
func isLoneChar(rs []rune, i int) bool {
	if i >= len(rs) || !isWordRune(rs[i]) {
		return false
	}
	if i > 0 && isWordRune(rs[i-1]) {
		return false
	}
	return i+1 == len(rs) || !isWordRune(rs[i+1])
}

// joinSpelledOut removes separators between two or more lone characters,
// so "f.u.c.k this" becomes "fuck this" while ordinary words keep their
// spacing.
func joinSpelledOut(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(rs); {
		if isLoneChar(rs, i) {
			chain := []rune{rs[i]}
			end := i + 1
			for {
				k := end
				for k < len(rs) && isSeparator(rs[k]) {
					k++
				}
				if k == end || !isLoneChar(rs, k) {
					break
				}
				chain = append(chain, rs[k])
				end = k + 1
			}
			if len(chain) >= 2 {
				b.WriteString(string(chain))
				i = end
				continue
			}
		}
		b.WriteRune(rs[i])
		i++
	}
	return b.String()
}

func stripSymbols(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case isWordRune(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
