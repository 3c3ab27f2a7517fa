package moderation

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestLoadLexicon_Overrides(t *testing.T) {
	doc := `
severe_profanity:
  - frack
negators:
  - not
  - without
`
	lex, err := LoadLexicon(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}

	if !slices.Equal(lex.SevereProfanity, []string{"frack"}) {
		t.Errorf("SevereProfanity = %v, want [frack]", lex.SevereProfanity)
	}
	if !slices.Equal(lex.Negators, []string{"not", "without"}) {
		t.Errorf("Negators = %v, want [not without]", lex.Negators)
	}
	if !slices.Equal(lex.MildProfanity, DefaultLexicon().MildProfanity) {
		t.Error("MildProfanity should keep its default when omitted")
	}
}

func TestLoadLexicon_Empty(t *testing.T) {
	lex, err := LoadLexicon(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadLexicon(empty): %v", err)
	}
	if !slices.Equal(lex.SpamPhrases, DefaultLexicon().SpamPhrases) {
		t.Error("empty document should yield the default lexicon")
	}
}

func TestLoadLexicon_Invalid(t *testing.T) {
	if _, err := LoadLexicon(strings.NewReader("severe_profanity: [unclosed")); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestLoadLexiconFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte("mild_profanity: [heck]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadLexiconFile(path)
	if err != nil {
		t.Fatalf("LoadLexiconFile: %v", err)
	}
	if !slices.Equal(lex.MildProfanity, []string{"heck"}) {
		t.Errorf("MildProfanity = %v, want [heck]", lex.MildProfanity)
	}

	if _, err := LoadLexiconFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadLexicon_DrivesDetectors(t *testing.T) {
	lex, err := LoadLexicon(strings.NewReader("severe_profanity: [frack]\n"))
	if err != nil {
		t.Fatal(err)
	}

	d := NewProfanityDetector(lex)
	r := d.Detect("what the fraaack is this", ProfanityModerate, nil)
	if r.Intensity != IntensitySevere {
		t.Errorf("Intensity = %q, want %q", r.Intensity, IntensitySevere)
	}
	if r := d.Detect("shit happens", ProfanityModerate, nil); r.Found {
		t.Errorf("replaced severe tier should no longer match default terms, got %v", r.Terms)
	}
}
