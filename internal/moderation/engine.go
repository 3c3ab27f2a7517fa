package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zoobzio/pipz"

	"github.com/vouch/testimonials/internal/metrics"
)

// DefaultClassifierTimeout bounds the optional AI classifier call.
const DefaultClassifierTimeout = 5 * time.Second

// Pipeline stage names, in execution order.
const (
	stageLength     = "length"
	stageProfanity  = "profanity"
	stageSpam       = "spam"
	stageSentiment  = "sentiment"
	stageBlocked    = "blocked_domain"
	stageDuplicate  = "duplicate"
	stageBehavior   = "behavior"
	stageClassifier = "ai_classifier"
)

// Logger is the subset of *log.Logger the engine needs.
type Logger interface {
	Printf(format string, args ...any)
}

// evaluation is the record threaded through the check pipeline. Each stage
// returns a copy with its outcome appended and never touches earlier ones.
type evaluation struct {
	sub      Submission
	cfg      Config
	signals  BehaviorSignals
	outcomes []Outcome
}

func (ev evaluation) with(o Outcome) evaluation {
	outcomes := make([]Outcome, len(ev.outcomes), len(ev.outcomes)+1)
	copy(outcomes, ev.outcomes)
	ev.outcomes = append(outcomes, o)
	return ev
}

type processor interface {
	Process(ctx context.Context, ev evaluation) (evaluation, error)
}

// Engine evaluates submissions. It holds only immutable tables and the
// optional classifier, so one Engine can serve concurrent evaluations.
type Engine struct {
	lexicon           *Lexicon
	profanity         *ProfanityDetector
	spam              *SpamDetector
	sentiment         *SentimentAnalyzer
	classifier        Classifier
	classifierTimeout time.Duration
	logger            Logger
	pipeline          processor
}

// Option configures an Engine.
type Option func(*Engine)

// WithLexicon replaces the built-in word lists.
func WithLexicon(lex *Lexicon) Option {
	return func(e *Engine) {
		if lex != nil {
			e.lexicon = lex
		}
	}
}

// WithClassifier enables the AI classifier check.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithClassifierTimeout bounds each classifier call.
func WithClassifierTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.classifierTimeout = d
		}
	}
}

// WithLogger sets the logger used for classifier degradation messages.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine builds an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		lexicon:           DefaultLexicon(),
		classifierTimeout: DefaultClassifierTimeout,
		logger:            log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.profanity = NewProfanityDetector(e.lexicon)
	e.spam = NewSpamDetector(e.lexicon)
	e.sentiment = NewSentimentAnalyzer(e.lexicon)
	e.pipeline = pipz.NewSequence[evaluation](
		"testimonial-moderation",
		pipz.Apply(stageLength, e.stage(e.checkLength)),
		pipz.Apply(stageProfanity, e.stage(e.checkProfanity)),
		pipz.Apply(stageSpam, e.stage(e.checkSpam)),
		pipz.Apply(stageSentiment, e.stage(e.checkSentiment)),
		pipz.Apply(stageBlocked, e.stage(e.checkBlockedDomain)),
		pipz.Apply(stageDuplicate, e.stage(e.checkDuplicate)),
		pipz.Apply(stageBehavior, e.stage(e.checkBehavior)),
		pipz.Apply(stageClassifier, e.stage(e.checkClassifier)),
	)

	if e.classifier == nil {
		e.logger.Printf("[engine] AI classifier disabled, using heuristics only")
	}
	return e
}

func (e *Engine) stage(check func(context.Context, evaluation) Outcome) func(context.Context, evaluation) (evaluation, error) {
	return func(ctx context.Context, ev evaluation) (evaluation, error) {
		return ev.with(check(ctx, ev)), nil
	}
}

// Evaluate runs every check against sub and folds the outcomes into a
// verdict. When auto-moderation is disabled the submission is left PENDING
// without running any check.
func (e *Engine) Evaluate(ctx context.Context, sub Submission, cfg Config, signals BehaviorSignals) Result {
	if !cfg.AutoModerationEnabled {
		return Result{Status: StatusPending, Flags: []string{}}
	}

	start := time.Now()
	cfg = cfg.WithDefaults()
	outcomes, err := e.runChecks(ctx, sub, cfg, signals)
	if err != nil {
		// Stages do not fail; a pipeline error means the evaluation is
		// unusable and must go to a human.
		e.logger.Printf("[engine] check pipeline failed: %v", err)
		return ManualReview("check pipeline failed")
	}

	result := Fold(outcomes, sub, cfg)

	for _, o := range outcomes {
		if len(o.Issues) > 0 {
			metrics.ChecksTriggered.WithLabelValues(o.Check).Inc()
		}
	}
	metrics.EvaluationsTotal.WithLabelValues(string(result.Status)).Inc()
	metrics.EvaluationLatency.Observe(time.Since(start).Seconds())
	return result
}

// runChecks executes the pipeline. Caller cancellation does not cut the
// pipeline short; only the classifier call is bounded, by its own timeout.
func (e *Engine) runChecks(ctx context.Context, sub Submission, cfg Config, signals BehaviorSignals) ([]Outcome, error) {
	ev, err := e.pipeline.Process(context.WithoutCancel(ctx), evaluation{
		sub:     sub,
		cfg:     cfg,
		signals: signals,
	})
	if err != nil {
		return nil, err
	}
	return ev.outcomes, nil
}

// Fold joins check outcomes into a Result: the status is the highest
// proposed severity, and a clean PENDING submission may be auto-approved.
func Fold(outcomes []Outcome, sub Submission, cfg Config) Result {
	severity := SeverityPending
	var issues, notes []string
	for _, o := range outcomes {
		severity = severity.Join(o.Severity)
		issues = append(issues, o.Issues...)
		notes = append(notes, o.Notes...)
	}

	quality := QualityScore(sub.Content, sub.Rating, sub.Verified)
	result := Result{Status: severity.Status()}

	if severity == SeverityPending && len(issues) == 0 {
		switch {
		case sub.Verified && cfg.AutoApproveVerified:
			result.Status = StatusApproved
			result.AutoPublish = true
			notes = append(notes, "auto-approved: verified reviewer")
		case quality >= 0.8 && sub.Rating >= 4:
			result.Status = StatusApproved
			result.AutoPublish = true
			notes = append(notes, fmt.Sprintf("auto-approved: high quality score (%.2f)", quality))
		}
	}

	result.Flags = make([]string, 0, len(issues)+len(notes))
	result.Flags = append(result.Flags, issues...)
	result.Flags = append(result.Flags, notes...)
	result.Score = math.Round((1-quality)*1e4) / 1e4
	return result
}

// ManualReview is the verdict used when moderation could not run: the
// submission stays PENDING for a human and is never published.
func ManualReview(reason string) Result {
	return Result{
		Status: StatusPending,
		Flags:  []string{"moderation unavailable: manual review required (" + reason + ")"},
	}
}

func (e *Engine) checkLength(_ context.Context, ev evaluation) Outcome {
	out := Outcome{Check: stageLength}
	if utf8.RuneCountInString(strings.TrimSpace(ev.sub.Content)) < ev.cfg.MinContentLength {
		out.Severity = SeverityRejected
		out.Issues = []string{"content too short"}
	}
	return out
}

func (e *Engine) checkProfanity(_ context.Context, ev evaluation) Outcome {
	return e.profanity.Detect(ev.sub.Content, ev.cfg.ProfanityLevel, ev.cfg.CustomProfanityTerms).Outcome()
}

func (e *Engine) checkSpam(_ context.Context, ev evaluation) Outcome {
	return e.spam.Analyze(ev.sub, ev.cfg).Outcome()
}

func (e *Engine) checkSentiment(_ context.Context, ev evaluation) Outcome {
	return e.sentiment.Analyze(ev.sub.Content).Outcome()
}

func (e *Engine) checkBlockedDomain(_ context.Context, ev evaluation) Outcome {
	out := Outcome{Check: stageBlocked}
	domain := emailDomain(ev.sub.AuthorEmail)
	if domain == "" {
		return out
	}
	for _, blocked := range ev.cfg.BlockedEmailDomains {
		if strings.EqualFold(strings.TrimSpace(blocked), domain) {
			out.Severity = SeverityRejected
			out.Issues = []string{"email domain is blocked: " + domain}
			break
		}
	}
	return out
}

func (e *Engine) checkDuplicate(_ context.Context, ev evaluation) Outcome {
	return CheckDuplicate(ev.sub.Content, ev.cfg.ExistingContents, ev.cfg.DuplicateSimilarityThreshold).Outcome()
}

func (e *Engine) checkBehavior(_ context.Context, ev evaluation) Outcome {
	return AnalyzeBehavior(ev.signals).Outcome()
}

// checkClassifier calls the AI classifier if one is configured. Any
// failure degrades to "no result" and is logged and counted separately
// from a real not-flagged answer.
func (e *Engine) checkClassifier(ctx context.Context, ev evaluation) Outcome {
	out := Outcome{Check: stageClassifier}
	if e.classifier == nil {
		metrics.ClassifierCalls.WithLabelValues("disabled").Inc()
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, e.classifierTimeout)
	defer cancel()

	verdict, err := e.classify(ctx, ev.sub.Content)
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		e.logger.Printf("[engine] classifier timed out after %s, continuing without it", e.classifierTimeout)
		metrics.ClassifierCalls.WithLabelValues("timeout").Inc()
		return out
	case err != nil:
		e.logger.Printf("[engine] classifier unavailable: %v, continuing without it", err)
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		return out
	case verdict == nil || !verdict.Flagged:
		metrics.ClassifierCalls.WithLabelValues("clean").Inc()
		return out
	}

	metrics.ClassifierCalls.WithLabelValues("flagged").Inc()
	return verdict.Outcome()
}

type classification struct {
	verdict *AIVerdict
	err     error
}

// classify waits for the classifier until ctx expires, whether or not the
// classifier itself honours ctx. A call left running after the deadline
// finishes into the buffered channel and is discarded.
func (e *Engine) classify(ctx context.Context, text string) (*AIVerdict, error) {
	done := make(chan classification, 1)
	go func() {
		v, err := e.classifier.Classify(ctx, text)
		done <- classification{verdict: v, err: err}
	}()

	select {
	case c := <-done:
		return c.verdict, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
