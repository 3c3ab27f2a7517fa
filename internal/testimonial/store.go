// Package testimonial provides PostgreSQL-backed access to testimonials and
// their projects' moderation settings. It supplies the duplicate-detection
// corpus and records moderation verdicts.
package testimonial

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vouch/testimonials/internal/moderation"
)

// ErrNotFound is returned when a testimonial or project does not exist.
var ErrNotFound = errors.New("testimonial: not found")

// Store reads and writes testimonials in PostgreSQL.
type Store struct {
	db *sql.DB
}

// Verdict is the moderation outcome persisted on a testimonial.
type Verdict struct {
	Status      moderation.Status
	Score       float64
	Flags       []string
	Publish     bool
	ModeratedAt time.Time
}

// NewStore creates a store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Entry is one stored testimonial as seen by duplicate detection.
type Entry struct {
	ID      string
	Content string
}

// Testimonial is a submitted testimonial awaiting moderation.
type Testimonial struct {
	ID          string
	ProjectID   string
	Content     string
	AuthorEmail string
	Rating      int // 0 when the reviewer gave none
	IsVerified  bool
	CreatedAt   time.Time
}

// CreateProject inserts a project with the given moderation settings.
func (s *Store) CreateProject(ctx context.Context, id, name string, settings moderation.Config) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("testimonial: marshal settings: %w", err)
	}
	const query = `INSERT INTO projects (id, name, moderation_settings) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, id, name, string(raw)); err != nil {
		return fmt.Errorf("testimonial: create project: %w", err)
	}
	return nil
}

// Insert stores a new testimonial in the PENDING state.
func (s *Store) Insert(ctx context.Context, t Testimonial) error {
	var rating sql.NullInt16
	if t.Rating > 0 {
		rating = sql.NullInt16{Int16: int16(t.Rating), Valid: true}
	}
	var email sql.NullString
	if t.AuthorEmail != "" {
		email = sql.NullString{String: t.AuthorEmail, Valid: true}
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const query = `
		INSERT INTO testimonials (id, project_id, content, author_email, rating, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.ProjectID,
		t.Content,
		email,
		rating,
		t.IsVerified,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("testimonial: insert: %w", err)
	}
	return nil
}

// Recent returns the project's most recent testimonials, newest first.
func (s *Store) Recent(ctx context.Context, projectID string, limit int) ([]Entry, error) {
	const query = `
		SELECT id, content
		FROM testimonials
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("testimonial: recent: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Content); err != nil {
			return nil, fmt.Errorf("testimonial: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("testimonial: recent: %w", err)
	}
	return entries, nil
}

// ModerationSettings loads a project's moderation settings. A project with
// no stored settings yields the zero Config, which leaves auto-moderation
// off. Settings that fail to decode are logged and treated the same way.
func (s *Store) ModerationSettings(ctx context.Context, projectID string) (moderation.Config, error) {
	const query = `SELECT moderation_settings FROM projects WHERE id = $1`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return moderation.Config{}, ErrNotFound
	}
	if err != nil {
		return moderation.Config{}, fmt.Errorf("testimonial: moderation settings: %w", err)
	}
	return decodeSettings(projectID, raw), nil
}

func decodeSettings(projectID string, raw []byte) moderation.Config {
	var cfg moderation.Config
	if len(raw) == 0 {
		return cfg
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Printf("[testimonial] project=%s malformed moderation settings, using defaults: %v", projectID, err)
		return moderation.Config{}
	}
	return cfg
}

// SaveVerdict records the moderation outcome on a testimonial.
func (s *Store) SaveVerdict(ctx context.Context, testimonialID string, v Verdict) error {
	flags := v.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("testimonial: marshal flags: %w", err)
	}

	const query = `
		UPDATE testimonials
		SET status = $2,
		    moderation_score = $3,
		    moderation_flags = $4,
		    is_published = $5,
		    moderated_at = $6
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		testimonialID,
		string(v.Status),
		v.Score,
		string(flagsJSON),
		v.Publish,
		v.ModeratedAt,
	)
	if err != nil {
		return fmt.Errorf("testimonial: save verdict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("testimonial: save verdict: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
