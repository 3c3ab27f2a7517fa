// Package messaging wraps the NATS connection used by the moderation
// service. Submissions arrive on testimonial.moderate, shared across
// moderator instances through a queue group, and verdicts go out on
// testimonial.moderated.<project_id>.
package messaging

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects.
const (
	SubjectModerate  = "testimonial.moderate"
	SubjectModerated = "testimonial.moderated" // + .<project_id>

	// QueueModerators load-balances requests across moderator instances.
	QueueModerators = "moderators"
)

// DefaultDrainTimeout bounds how long DrainModerationRequests waits for
// buffered requests to reach the handler.
const DefaultDrainTimeout = 30 * time.Second

const drainPollInterval = 10 * time.Millisecond

// NATSClient wraps the NATS connection with helpers for the moderation
// subjects.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription

	// requestsInFlight counts moderation request callbacks still running.
	requestsInFlight atomic.Int64
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns the settings used when nothing is configured.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "testimonial-moderator",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NewNATSClient connects to NATS. It fails if the initial connection does.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("messaging: connect: %w", err)
	}
	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("messaging: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers handler for subject. When queue is non-empty the
// subscription joins that queue group.
func (c *NATSClient) Subscribe(subject, queue string, handler func(data []byte)) error {
	cb := func(msg *nats.Msg) { handler(msg.Data) }

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = c.conn.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = c.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return fmt.Errorf("messaging: subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()
	return nil
}

// SubscribeModerationRequests receives submissions in the moderators queue
// group, so each request is handled by one instance.
func (c *NATSClient) SubscribeModerationRequests(handler func(data []byte)) error {
	return c.Subscribe(SubjectModerate, QueueModerators, func(data []byte) {
		c.requestsInFlight.Add(1)
		defer c.requestsInFlight.Add(-1)
		handler(data)
	})
}

// DrainModerationRequests stops taking new requests and blocks until every
// request already received has been passed to the handler and the handler
// has returned, or until timeout.
func (c *NATSClient) DrainModerationRequests(timeout time.Duration) error {
	c.mu.Lock()
	sub, ok := c.subs[SubjectModerate]
	delete(c.subs, SubjectModerate)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("messaging: drain %s: %w", SubjectModerate, err)
	}

	deadline := time.Now().Add(timeout)
	for sub.IsValid() || c.requestsInFlight.Load() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("messaging: drain %s: timed out after %s", SubjectModerate, timeout)
		}
		time.Sleep(drainPollInterval)
	}
	return nil
}

// PublishModerationRequest submits a testimonial for moderation.
func (c *NATSClient) PublishModerationRequest(data []byte) error {
	return c.Publish(SubjectModerate, data)
}

// PublishModerationResult publishes a verdict for a project.
func (c *NATSClient) PublishModerationResult(projectID string, data []byte) error {
	return c.Publish(ResultSubject(projectID), data)
}

// SubscribeModerationResults receives verdicts for a project.
func (c *NATSClient) SubscribeModerationResults(projectID string, handler func(data []byte)) error {
	return c.Subscribe(ResultSubject(projectID), "", handler)
}

// UnsubscribeModerationResults stops receiving verdicts for a project.
func (c *NATSClient) UnsubscribeModerationResults(projectID string) error {
	return c.unsubscribe(ResultSubject(projectID))
}

// ResultSubject is the subject verdicts for projectID are published on.
func ResultSubject(projectID string) string {
	return SubjectModerated + "." + projectID
}

// Flush waits until the server has processed everything published so far.
func (c *NATSClient) Flush(timeout time.Duration) error {
	return c.conn.FlushTimeout(timeout)
}

// Close drains all subscriptions and then the connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}
	log.Printf("[nats] client closed")
}

func (c *NATSClient) unsubscribe(subject string) error {
	c.mu.Lock()
	sub, ok := c.subs[subject]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("messaging: no subscription for subject %s", subject)
	}
	delete(c.subs, subject)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("messaging: unsubscribe %s: %w", subject, err)
	}
	return nil
}
