package moderation

// RiskLevel classifies how suspicious a reviewer's submission velocity is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Velocity thresholds inside the trailing window.
const (
	ipHighThreshold      = 10
	ipMediumThreshold    = 5
	ipProjectThreshold   = 3
	emailHighThreshold   = 6
	emailMediumThreshold = 4
)

// BehaviorReport is the reviewer risk derived from BehaviorSignals.
type BehaviorReport struct {
	RiskLevel RiskLevel
	Reasons   []string
}

// AnalyzeBehavior evaluates each velocity rule independently and keeps the
// highest risk raised.
func AnalyzeBehavior(s BehaviorSignals) BehaviorReport {
	report := BehaviorReport{RiskLevel: RiskLow}
	raise := func(level RiskLevel, reason string) {
		report.Reasons = append(report.Reasons, reason)
		if level.rank() > report.RiskLevel.rank() {
			report.RiskLevel = level
		}
	}

	switch {
	case s.IPRecentCount >= ipHighThreshold:
		raise(RiskHigh, "high submission volume from same IP")
	case s.IPRecentCount >= ipMediumThreshold:
		raise(RiskMedium, "unusual submission volume from same IP")
	}
	if s.IPProjectRecentCount >= ipProjectThreshold {
		raise(RiskMedium, "multiple testimonials for this project from same IP")
	}
	switch {
	case s.EmailRecentCount >= emailHighThreshold:
		raise(RiskHigh, "excessive submissions from same email")
	case s.EmailRecentCount >= emailMediumThreshold:
		raise(RiskMedium, "repeated submissions from same email")
	}
	return report
}

// Outcome converts the report into the behavior check's contribution.
func (r BehaviorReport) Outcome() Outcome {
	out := Outcome{Check: "behavior", Issues: r.Reasons}
	switch r.RiskLevel {
	case RiskHigh:
		out.Severity = SeverityRejected
	case RiskMedium:
		out.Severity = SeverityFlagged
	}
	return out
}
