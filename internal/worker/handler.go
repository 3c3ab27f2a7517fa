// Package worker turns moderation requests into verdicts: it gathers the
// engine's inputs from the collaborators, evaluates, persists the verdict
// and publishes the response. A failing collaborator never produces an
// approval or rejection; the testimonial falls back to manual review.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vouch/testimonials/internal/metrics"
	"github.com/vouch/testimonials/internal/moderation"
	"github.com/vouch/testimonials/internal/testimonial"
	"github.com/vouch/testimonials/internal/velocity"
)

// ErrInvalidRequest marks a request that can never be processed.
var ErrInvalidRequest = errors.New("worker: invalid request")

// Collaborators the handler reads from and writes to.
type (
	Settings interface {
		ModerationSettings(ctx context.Context, projectID string) (moderation.Config, error)
	}
	Corpus interface {
		Contents(ctx context.Context, projectID, excludeID string) ([]string, error)
		Invalidate(ctx context.Context, projectID string) error
	}
	Counter interface {
		Counts(ctx context.Context, projectID, ip, email, excludeID string) (moderation.BehaviorSignals, error)
		Record(ctx context.Context, s velocity.Submission) error
	}
	Verdicts interface {
		SaveVerdict(ctx context.Context, testimonialID string, v testimonial.Verdict) error
	}
	Publisher interface {
		PublishModerationResult(projectID string, data []byte) error
	}
)

// Logger is the subset of *log.Logger the handler needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Deps groups the handler's collaborators.
type Deps struct {
	Engine    *moderation.Engine
	Settings  Settings
	Corpus    Corpus
	Counter   Counter
	Verdicts  Verdicts
	Publisher Publisher
	Logger    Logger
}

// Handler processes one moderation request at a time; it is safe for
// concurrent use when its collaborators are.
type Handler struct {
	Deps
	now func() time.Time
}

// NewHandler creates a handler. Logger defaults to log.Default().
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Handler{Deps: deps, now: time.Now}
}

// Decode parses and validates a raw request.
func Decode(data []byte) (moderation.Request, error) {
	var req moderation.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%w: decode: %v", ErrInvalidRequest, err)
	}
	if _, err := uuid.Parse(req.TestimonialID); err != nil {
		return req, fmt.Errorf("%w: testimonial_id %q: %v", ErrInvalidRequest, req.TestimonialID, err)
	}
	if _, err := uuid.Parse(req.ProjectID); err != nil {
		return req, fmt.Errorf("%w: project_id %q: %v", ErrInvalidRequest, req.ProjectID, err)
	}
	if req.Rating < 0 || req.Rating > 5 {
		return req, fmt.Errorf("%w: rating %d out of range", ErrInvalidRequest, req.Rating)
	}
	return req, nil
}

// HandleMessage decodes a raw request and handles it.
func (h *Handler) HandleMessage(ctx context.Context, data []byte) error {
	req, err := Decode(data)
	if err != nil {
		return err
	}
	_, err = h.Handle(ctx, req)
	return err
}

// Handle moderates one request, persists the verdict and publishes it.
func (h *Handler) Handle(ctx context.Context, req moderation.Request) (moderation.Response, error) {
	result, fallback := h.evaluate(ctx, req)

	resp := moderation.Response{
		RequestID:     req.RequestID,
		EvaluationID:  uuid.NewString(),
		TestimonialID: req.TestimonialID,
		ProjectID:     req.ProjectID,
		Status:        result.Status,
		Score:         result.Score,
		Flags:         result.Flags,
		AutoPublish:   result.AutoPublish,
		Fallback:      fallback,
		EvaluatedAt:   h.now().UTC(),
	}
	if resp.Flags == nil {
		resp.Flags = []string{}
	}

	err := h.Verdicts.SaveVerdict(ctx, req.TestimonialID, testimonial.Verdict{
		Status:      resp.Status,
		Score:       resp.Score,
		Flags:       resp.Flags,
		Publish:     resp.AutoPublish,
		ModeratedAt: resp.EvaluatedAt,
	})
	if err != nil {
		return resp, fmt.Errorf("worker: save verdict %s: %w", req.TestimonialID, err)
	}
	if err := h.Corpus.Invalidate(ctx, req.ProjectID); err != nil {
		h.Logger.Printf("[moderator] project=%s corpus invalidate failed: %v", req.ProjectID, err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return resp, fmt.Errorf("worker: marshal response: %w", err)
	}
	if err := h.Publisher.PublishModerationResult(req.ProjectID, data); err != nil {
		return resp, fmt.Errorf("worker: publish %s: %w", req.TestimonialID, err)
	}

	h.Logger.Printf("[moderator] %s testimonial=%s project=%s score=%.2f flags=%d fallback=%v",
		resp.Status, req.TestimonialID, req.ProjectID, resp.Score, len(resp.Flags), fallback)
	return resp, nil
}

// evaluate gathers the engine inputs and runs it. The second return is true
// when a collaborator failed and the manual-review verdict was used.
func (h *Handler) evaluate(ctx context.Context, req moderation.Request) (moderation.Result, bool) {
	cfg, err := h.Settings.ModerationSettings(ctx, req.ProjectID)
	switch {
	case errors.Is(err, testimonial.ErrNotFound):
		h.Logger.Printf("[moderator] project=%s has no settings, leaving for manual review", req.ProjectID)
		cfg = moderation.Config{}
	case err != nil:
		return h.fallback(req, "settings unavailable", err), true
	}

	sub := req.Submission()
	if !cfg.AutoModerationEnabled {
		return h.Engine.Evaluate(ctx, sub, cfg, moderation.BehaviorSignals{}), false
	}

	corpus, err := h.Corpus.Contents(ctx, req.ProjectID, req.TestimonialID)
	if err != nil {
		return h.fallback(req, "corpus unavailable", err), true
	}
	signals, err := h.Counter.Counts(ctx, req.ProjectID, req.IP, req.AuthorEmail, req.TestimonialID)
	if err != nil {
		return h.fallback(req, "reviewer counts unavailable", err), true
	}

	cfg.ExistingContents = append(append([]string(nil), cfg.ExistingContents...), corpus...)
	result := h.Engine.Evaluate(ctx, sub, cfg, signals)

	at := req.SubmittedAt
	if at.IsZero() {
		at = h.now()
	}
	err = h.Counter.Record(ctx, velocity.Submission{
		ID:        req.TestimonialID,
		ProjectID: req.ProjectID,
		IP:        req.IP,
		Email:     req.AuthorEmail,
		At:        at,
	})
	if err != nil {
		h.Logger.Printf("[moderator] testimonial=%s velocity record failed: %v", req.TestimonialID, err)
	}
	return result, false
}

func (h *Handler) fallback(req moderation.Request, reason string, err error) moderation.Result {
	h.Logger.Printf("[moderator] testimonial=%s %s: %v, falling back to manual review", req.TestimonialID, reason, err)
	metrics.FallbacksTotal.WithLabelValues(strings.ReplaceAll(reason, " ", "_")).Inc()
	return moderation.ManualReview(reason)
}
