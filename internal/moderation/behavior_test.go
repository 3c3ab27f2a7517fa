package moderation

import (
	"slices"
	"testing"
)

func TestAnalyzeBehavior(t *testing.T) {
	tests := []struct {
		name    string
		signals BehaviorSignals
		risk    RiskLevel
		reasons []string
	}{
		{"no activity", BehaviorSignals{}, RiskLow, nil},
		{"below every threshold", BehaviorSignals{IPRecentCount: 4, IPProjectRecentCount: 2, EmailRecentCount: 3}, RiskLow, nil},
		{"ip medium", BehaviorSignals{IPRecentCount: 5}, RiskMedium, []string{"unusual submission volume from same IP"}},
		{"ip high", BehaviorSignals{IPRecentCount: 10}, RiskHigh, []string{"high submission volume from same IP"}},
		{"ip per project", BehaviorSignals{IPProjectRecentCount: 3}, RiskMedium, []string{"multiple testimonials for this project from same IP"}},
		{"email medium", BehaviorSignals{EmailRecentCount: 4}, RiskMedium, []string{"repeated submissions from same email"}},
		{"email high", BehaviorSignals{EmailRecentCount: 6}, RiskHigh, []string{"excessive submissions from same email"}},
		{
			"rules combine and keep the highest",
			BehaviorSignals{IPRecentCount: 10, IPProjectRecentCount: 3, EmailRecentCount: 4},
			RiskHigh,
			[]string{
				"high submission volume from same IP",
				"multiple testimonials for this project from same IP",
				"repeated submissions from same email",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := AnalyzeBehavior(tt.signals)
			if r.RiskLevel != tt.risk {
				t.Errorf("RiskLevel = %q, want %q", r.RiskLevel, tt.risk)
			}
			if !slices.Equal(r.Reasons, tt.reasons) {
				t.Errorf("Reasons = %v, want %v", r.Reasons, tt.reasons)
			}
		})
	}
}

func TestBehaviorOutcome(t *testing.T) {
	tests := []struct {
		risk RiskLevel
		want Severity
	}{
		{RiskLow, SeverityPending},
		{RiskMedium, SeverityFlagged},
		{RiskHigh, SeverityRejected},
	}

	for _, tt := range tests {
		out := BehaviorReport{RiskLevel: tt.risk}.Outcome()
		if out.Severity != tt.want {
			t.Errorf("BehaviorReport{%s}.Outcome().Severity = %v, want %v", tt.risk, out.Severity, tt.want)
		}
		if out.Check != "behavior" {
			t.Errorf("Check = %q, want %q", out.Check, "behavior")
		}
	}
}
