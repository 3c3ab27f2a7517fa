package moderation

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds every word list the checks match against. A Lexicon is
// never modified after construction and may be shared by concurrent engines.
type Lexicon struct {
	SevereProfanity   []string `yaml:"severe_profanity"`
	MildProfanity     []string `yaml:"mild_profanity"`
	SpamPhrases       []string `yaml:"spam_phrases"`
	DisposableDomains []string `yaml:"disposable_domains"`
	ExtremePositive   []string `yaml:"extreme_positive"`
	SevereNegative    []string `yaml:"severe_negative"`
	StrongNegative    []string `yaml:"strong_negative"`
	ModerateNegative  []string `yaml:"moderate_negative"`
	Positive          []string `yaml:"positive"`
	Negators          []string `yaml:"negators"`
}

// DefaultLexicon returns the built-in word lists.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		SevereProfanity: []string{
			"fuck", "fucking", "fucker", "motherfucker", "shit", "bullshit",
			"cunt", "bitch", "asshole", "bastard", "dick", "cock", "pussy",
			"whore", "slut", "nigger", "nigga", "faggot", "fag", "retard",
			"wanker", "twat",
		},
		MildProfanity: []string{
			"damn", "dammit", "crap", "crappy", "hell", "piss", "pissed",
			"bloody", "bugger", "arse", "jerk", "douche", "screw", "sucks",
		},
		SpamPhrases: []string{
			"buy now", "click here", "order now", "act now", "limited time",
			"free money", "make money", "earn money", "work from home",
			"100% free", "risk free", "no credit check", "special promotion",
			"visit our website", "check out my", "promo code", "discount code",
			"use code", "dm me", "whatsapp me", "crypto investment",
			"guaranteed income",
		},
		DisposableDomains: []string{
			"mailinator.com", "guerrillamail.com", "guerrillamail.net",
			"10minutemail.com", "tempmail.com", "temp-mail.org",
			"throwawaymail.com", "yopmail.com", "trashmail.com",
			"sharklasers.com", "dispostable.com", "maildrop.cc",
			"fakeinbox.com", "mailnesia.com", "getnada.com", "mintemail.com",
		},
		ExtremePositive: []string{
			"amazing", "incredible", "unbelievable", "perfect", "flawless",
			"life-changing", "mind-blowing", "miraculous", "revolutionary",
			"phenomenal", "extraordinary", "unmatched",
		},
		SevereNegative: []string{
			"scam", "scammer", "scammed", "fraud", "fraudulent", "ripoff",
			"stole", "stolen", "theft", "criminal", "illegal", "dangerous",
		},
		StrongNegative: []string{
			"terrible", "horrible", "awful", "worst", "hate", "hated",
			"disgusting", "useless", "pathetic", "garbage", "trash",
			"unacceptable", "nightmare", "worthless",
		},
		ModerateNegative: []string{
			"bad", "poor", "disappointing", "disappointed", "slow", "rude",
			"broken", "mediocre", "overpriced", "annoying", "unhappy",
			"problem", "issues", "confusing", "buggy",
		},
		Positive: []string{
			"good", "great", "excellent", "love", "loved", "amazing",
			"wonderful", "fantastic", "best", "awesome", "helpful",
			"recommend", "happy", "perfect", "outstanding", "pleased",
			"reliable", "easy", "friendly", "brilliant",
		},
		Negators: []string{
			"not", "no", "never", "none", "hardly", "scarcely", "barely",
			"neither", "nor",
		},
	}
}

// LoadLexicon reads a YAML lexicon. Lists present in the document replace
// the corresponding built-in list; omitted lists keep their defaults.
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	var override Lexicon
	if err := yaml.NewDecoder(r).Decode(&override); err != nil && err != io.EOF {
		return nil, fmt.Errorf("moderation: decode lexicon: %w", err)
	}

	lex := DefaultLexicon()
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&lex.SevereProfanity, override.SevereProfanity)
	replace(&lex.MildProfanity, override.MildProfanity)
	replace(&lex.SpamPhrases, override.SpamPhrases)
	replace(&lex.DisposableDomains, override.DisposableDomains)
	replace(&lex.ExtremePositive, override.ExtremePositive)
	replace(&lex.SevereNegative, override.SevereNegative)
	replace(&lex.StrongNegative, override.StrongNegative)
	replace(&lex.ModerateNegative, override.ModerateNegative)
	replace(&lex.Positive, override.Positive)
	replace(&lex.Negators, override.Negators)
	return lex, nil
}

// LoadLexiconFile is LoadLexicon over the file at path.
func LoadLexiconFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("moderation: open lexicon: %w", err)
	}
	defer f.Close()
	return LoadLexicon(f)
}
