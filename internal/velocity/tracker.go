// Package velocity tracks reviewer submission velocity in Redis sorted
// sets. Each submission is a member scored by its Unix-millisecond time, so
// counting inside a trailing window is a ZCOUNT after trimming old members:
//
//	velocity:ip:<ip>                    submissions from an IP
//	velocity:ipproj:<project_id>:<ip>   submissions from an IP to one project
//	velocity:email:<email>              submissions from an email address
package velocity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vouch/testimonials/internal/moderation"
)

// Key prefixes.
const (
	PrefixIP        = "velocity:ip:"
	PrefixIPProject = "velocity:ipproj:"
	PrefixEmail     = "velocity:email:"
)

// DefaultWindow is the trailing window the counts cover.
const DefaultWindow = 24 * time.Hour

// Submission identifies one testimonial for velocity tracking.
type Submission struct {
	ID        string
	ProjectID string
	IP        string
	Email     string
	At        time.Time
}

// Tracker records submissions and counts them over a trailing window.
type Tracker struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

// NewTracker creates a tracker. A non-positive window uses DefaultWindow.
func NewTracker(client *redis.Client, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{client: client, window: window, now: time.Now}
}

type trackedKey struct {
	key   string
	field string
}

func keysFor(projectID, ip, email string) []trackedKey {
	ip = strings.TrimSpace(ip)
	email = strings.ToLower(strings.TrimSpace(email))

	var keys []trackedKey
	if ip != "" {
		keys = append(keys,
			trackedKey{key: PrefixIP + ip, field: "ip"},
			trackedKey{key: PrefixIPProject + projectID + ":" + ip, field: "ip_project"},
		)
	}
	if email != "" {
		keys = append(keys, trackedKey{key: PrefixEmail + email, field: "email"})
	}
	return keys
}

// Record adds a submission to every key it belongs to. Members older than
// the window are trimmed and each key expires one window after its last
// write.
func (t *Tracker) Record(ctx context.Context, s Submission) error {
	keys := keysFor(s.ProjectID, s.IP, s.Email)
	if len(keys) == 0 {
		return nil
	}
	at := s.At
	if at.IsZero() {
		at = t.now()
	}
	cutoff := strconv.FormatInt(t.now().Add(-t.window).UnixMilli(), 10)

	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.ZAdd(ctx, k.key, redis.Z{Score: float64(at.UnixMilli()), Member: s.ID})
			pipe.ZRemRangeByScore(ctx, k.key, "-inf", "("+cutoff)
			pipe.Expire(ctx, k.key, t.window)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("velocity: record testimonial=%s: %w", s.ID, err)
	}
	return nil
}

// Counts returns how many submissions fall inside the window for the IP,
// the IP within the project, and the email. The submission being moderated
// is excluded when excludeID is set and it was already recorded. Blank IP
// or email count as zero.
func (t *Tracker) Counts(ctx context.Context, projectID, ip, email, excludeID string) (moderation.BehaviorSignals, error) {
	var signals moderation.BehaviorSignals
	keys := keysFor(projectID, ip, email)
	if len(keys) == 0 {
		return signals, nil
	}
	from := strconv.FormatInt(t.now().Add(-t.window).UnixMilli(), 10)

	counts := make([]*redis.IntCmd, len(keys))
	self := make([]*redis.FloatCmd, len(keys))
	// A missing member makes ZSCORE fail with redis.Nil, so errors are
	// checked per command below.
	_, _ = t.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			counts[i] = pipe.ZCount(ctx, k.key, from, "+inf")
			if excludeID != "" {
				self[i] = pipe.ZScore(ctx, k.key, excludeID)
			}
		}
		return nil
	})
	fromScore, _ := strconv.ParseFloat(from, 64)
	for i, k := range keys {
		if err := counts[i].Err(); err != nil {
			return moderation.BehaviorSignals{}, fmt.Errorf("velocity: count %s: %w", k.key, err)
		}
		n := int(counts[i].Val())
		if self[i] != nil && self[i].Err() == nil && self[i].Val() >= fromScore {
			n--
		}
		switch k.field {
		case "ip":
			signals.IPRecentCount = n
		case "ip_project":
			signals.IPProjectRecentCount = n
		case "email":
			signals.EmailRecentCount = n
		}
	}
	return signals, nil
}
