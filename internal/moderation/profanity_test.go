package moderation

import (
	"slices"
	"testing"
)

func TestDetect_Obfuscated(t *testing.T) {
	d := NewProfanityDetector(DefaultLexicon())

	tests := []struct {
		name  string
		input string
		term  string
	}{
		{"dotted", "f.u.c.k this company", "fuck"},
		{"stretched", "what a biiiitch", "bitch"},
		{"leet", "this is $h!t", "shit"},
		{"digit for i", "b1tch", "bitch"},
		{"accented", "fück off", "fuck"},
		{"uppercase", "SHIT service", "shit"},
		{"trailing exclamation", "total shit!", "shit"},
		{"underscored", "s_h_i_t product", "shit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.Detect(tt.input, ProfanityModerate, nil)
			if !r.Found {
				t.Fatalf("Detect(%q).Found = false, want true", tt.input)
			}
			if r.Intensity != IntensitySevere {
				t.Errorf("Detect(%q).Intensity = %q, want %q", tt.input, r.Intensity, IntensitySevere)
			}
			if !slices.Contains(r.Terms, tt.term) {
				t.Errorf("Detect(%q).Terms = %v, want to contain %q", tt.input, r.Terms, tt.term)
			}
		})
	}
}

func TestDetect_Levels(t *testing.T) {
	d := NewProfanityDetector(DefaultLexicon())

	tests := []struct {
		name      string
		input     string
		level     ProfanityLevel
		custom    []string
		found     bool
		intensity Intensity
	}{
		{"strict catches mild", "damn that was slow", ProfanityStrict, nil, true, IntensityMild},
		{"moderate ignores mild", "damn that was slow", ProfanityModerate, nil, false, IntensityNone},
		{"moderate catches severe", "this is shit", ProfanityModerate, nil, true, IntensitySevere},
		{"lenient ignores severe", "this is shit", ProfanityLenient, nil, false, IntensityNone},
		{"lenient custom term", "this widget broke", ProfanityLenient, []string{"widget"}, true, IntensityMild},
		{"custom term on moderate", "the gizmo failed", ProfanityModerate, []string{"gizmo"}, true, IntensityMild},
		{"severe wins over mild", "damn this shit", ProfanityStrict, nil, true, IntensitySevere},
		{"custom severe word stays severe", "shit", ProfanityLenient, []string{"shit"}, true, IntensitySevere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.Detect(tt.input, tt.level, tt.custom)
			if r.Found != tt.found {
				t.Errorf("Detect(%q, %s).Found = %v, want %v", tt.input, tt.level, r.Found, tt.found)
			}
			if r.Intensity != tt.intensity {
				t.Errorf("Detect(%q, %s).Intensity = %q, want %q", tt.input, tt.level, r.Intensity, tt.intensity)
			}
		})
	}
}

func TestDetect_CleanMessages(t *testing.T) {
	d := NewProfanityDetector(DefaultLexicon())

	messages := []string{
		"hello, how are you?",
		"I need to assess the situation",
		"the team at Scunthorpe was lovely",
		"what class are you in?",
		"the shell script works",
		"a cocktail bar with great staff",
		"hello world",
		"",
		"!!!???",
	}

	for _, msg := range messages {
		if r := d.Detect(msg, ProfanityStrict, nil); r.Found {
			t.Errorf("Detect(%q) found %v, expected clean", msg, r.Terms)
		}
	}
}

func TestDetect_TermsDeduplicated(t *testing.T) {
	d := NewProfanityDetector(DefaultLexicon())

	r := d.Detect("shit shit shit", ProfanityStrict, []string{"shit"})
	if len(r.Terms) != 1 {
		t.Errorf("Terms = %v, want a single entry", r.Terms)
	}
}

func TestProfanityOutcome(t *testing.T) {
	tests := []struct {
		name     string
		report   ProfanityReport
		severity Severity
		issues   int
	}{
		{"none", ProfanityReport{Intensity: IntensityNone}, SeverityPending, 0},
		{"mild", ProfanityReport{Found: true, Terms: []string{"damn"}, Intensity: IntensityMild}, SeverityFlagged, 1},
		{"severe", ProfanityReport{Found: true, Terms: []string{"shit"}, Intensity: IntensitySevere}, SeverityRejected, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.report.Outcome()
			if out.Severity != tt.severity {
				t.Errorf("Severity = %v, want %v", out.Severity, tt.severity)
			}
			if len(out.Issues) != tt.issues {
				t.Errorf("Issues = %v, want %d entries", out.Issues, tt.issues)
			}
		})
	}
}

func BenchmarkDetect(b *testing.B) {
	d := NewProfanityDetector(DefaultLexicon())
	msg := "The onboarding was smooth and the support team answered within minutes."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Detect(msg, ProfanityStrict, nil)
	}
}
