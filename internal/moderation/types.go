package moderation

import "time"

// Status is the verdict stored on a testimonial.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusFlagged  Status = "FLAGGED"
	StatusRejected Status = "REJECTED"
	StatusApproved Status = "APPROVED"
)

// Severity is the order checks escalate along. The verdict of an evaluation
// is the highest severity any check proposed.
type Severity int

const (
	SeverityPending Severity = iota
	SeverityFlagged
	SeverityRejected
)

// Status maps a severity onto the matching verdict.
func (s Severity) Status() Status {
	switch s {
	case SeverityRejected:
		return StatusRejected
	case SeverityFlagged:
		return StatusFlagged
	default:
		return StatusPending
	}
}

// Join returns the higher of two severities.
func (s Severity) Join(other Severity) Severity {
	if other > s {
		return other
	}
	return s
}

// ProfanityLevel selects which lexicon tiers the profanity check uses.
type ProfanityLevel string

const (
	ProfanityStrict   ProfanityLevel = "STRICT"
	ProfanityModerate ProfanityLevel = "MODERATE"
	ProfanityLenient  ProfanityLevel = "LENIENT"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultMinContentLength             = 10
	DefaultMaxURLCount                  = 2
	DefaultDuplicateSimilarityThreshold = 0.9
)

// Submission is the testimonial under evaluation.
type Submission struct {
	Content     string
	AuthorEmail string
	Rating      int // 1..5, 0 when the reviewer gave none
	Verified    bool
}

// Config holds a project's moderation settings. Zero values mean "use the
// documented default"; WithDefaults fills them in.
type Config struct {
	AutoModerationEnabled        bool           `json:"auto_moderation_enabled"`
	AutoApproveVerified          bool           `json:"auto_approve_verified"`
	ProfanityLevel               ProfanityLevel `json:"profanity_level"`
	MinContentLength             int            `json:"min_content_length,omitempty"`
	MaxURLCount                  int            `json:"max_url_count,omitempty"`
	AllowedDomains               []string       `json:"allowed_domains,omitempty"`
	BlockedEmailDomains          []string       `json:"blocked_email_domains,omitempty"`
	CustomProfanityTerms         []string       `json:"custom_profanity_terms,omitempty"`
	BrandKeywords                []string       `json:"brand_keywords,omitempty"`
	AverageRating                *float64       `json:"average_rating,omitempty"`
	ExistingContents             []string       `json:"existing_contents,omitempty"`
	DuplicateSimilarityThreshold float64        `json:"duplicate_similarity_threshold,omitempty"`
}

// WithDefaults returns a copy of c with every unset optional field replaced
// by its default. Out-of-range values are treated as unset.
func (c Config) WithDefaults() Config {
	if c.MinContentLength <= 0 {
		c.MinContentLength = DefaultMinContentLength
	}
	if c.MaxURLCount <= 0 {
		c.MaxURLCount = DefaultMaxURLCount
	}
	if c.DuplicateSimilarityThreshold <= 0 || c.DuplicateSimilarityThreshold > 1 {
		c.DuplicateSimilarityThreshold = DefaultDuplicateSimilarityThreshold
	}
	switch c.ProfanityLevel {
	case ProfanityStrict, ProfanityModerate, ProfanityLenient:
	default:
		c.ProfanityLevel = ProfanityModerate
	}
	return c
}

// BehaviorSignals are submission counts for the reviewer inside the trailing
// velocity window. They are fetched by the caller before evaluation.
type BehaviorSignals struct {
	IPRecentCount        int `json:"ip_recent_count"`
	IPProjectRecentCount int `json:"ip_project_recent_count"`
	EmailRecentCount     int `json:"email_recent_count"`
}

// Outcome is what a single check contributes to an evaluation.
type Outcome struct {
	Check    string
	Severity Severity
	Issues   []string
	Notes    []string
}

// Result is the verdict of one evaluation. Flags lists every issue found,
// in check order, followed by the positive notes.
type Result struct {
	Status      Status   `json:"status"`
	Score       float64  `json:"score"`
	Flags       []string `json:"flags"`
	AutoPublish bool     `json:"auto_publish"`
}

// Request is published to testimonial.moderate when a testimonial is
// submitted.
type Request struct {
	RequestID     string    `json:"request_id"`
	TestimonialID string    `json:"testimonial_id"`
	ProjectID     string    `json:"project_id"`
	Content       string    `json:"content"`
	AuthorEmail   string    `json:"author_email,omitempty"`
	Rating        int       `json:"rating,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	IP            string    `json:"ip,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Submission extracts the engine input from the request.
func (r Request) Submission() Submission {
	return Submission{
		Content:     r.Content,
		AuthorEmail: r.AuthorEmail,
		Rating:      r.Rating,
		Verified:    r.IsVerified,
	}
}

// Response is published back on testimonial.moderated.<project_id>.
type Response struct {
	RequestID     string    `json:"request_id"`
	EvaluationID  string    `json:"evaluation_id"`
	TestimonialID string    `json:"testimonial_id"`
	ProjectID     string    `json:"project_id"`
	Status        Status    `json:"status"`
	Score         float64   `json:"score"`
	Flags         []string  `json:"flags"`
	AutoPublish   bool      `json:"auto_publish"`
	Fallback      bool      `json:"fallback"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}
