package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vouch/testimonials/internal/metrics"
)

var (
	// ErrQueueFull indicates the request queue is currently saturated.
	ErrQueueFull = errors.New("worker: queue full")

	// ErrStopped is returned by Enqueue once Stop has been called.
	ErrStopped = errors.New("worker: pool stopped")
)

// DefaultJobTimeout bounds the handling of one request.
const DefaultJobTimeout = 30 * time.Second

// MessageHandler processes one raw request.
type MessageHandler interface {
	HandleMessage(ctx context.Context, data []byte) error
}

// Pool handles raw requests on a fixed number of goroutines behind a
// bounded queue.
type Pool struct {
	handler    MessageHandler
	jobs       chan []byte
	workers    int
	jobTimeout time.Duration
	logger     Logger
	startOnce  sync.Once
	stopOnce   sync.Once
	wg         sync.WaitGroup

	mu      sync.RWMutex // guards stopped and the close of jobs
	stopped bool
}

// NewPool constructs a pool. Non-positive sizes fall back to 4 workers and
// a queue of 256.
func NewPool(workers, queueSize int, handler MessageHandler, logger Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pool{
		handler:    handler,
		jobs:       make(chan []byte, queueSize),
		workers:    workers,
		jobTimeout: DefaultJobTimeout,
		logger:     logger,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.workerLoop()
		}
	})
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for data := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
		if err := p.handler.HandleMessage(ctx, data); err != nil {
			if errors.Is(err, ErrInvalidRequest) {
				p.logger.Printf("[moderator] dropping request: %v", err)
			} else {
				p.logger.Printf("[moderator] request failed: %v", err)
			}
		}
		cancel()
	}
}

// Stop handles everything already queued, then returns.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

// Enqueue submits a raw request without blocking.
func (p *Pool) Enqueue(data []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- data:
		return nil
	default:
		metrics.QueueDropped.Inc()
		return ErrQueueFull
	}
}
