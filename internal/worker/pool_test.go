package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingHandler collects handled messages and can block until released.
type recordingHandler struct {
	mu      sync.Mutex
	handled []string
	release chan struct{}
	err     error
}

func (h *recordingHandler) HandleMessage(_ context.Context, data []byte) error {
	if h.release != nil {
		<-h.release
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, string(data))
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestPoolProcessesJobs(t *testing.T) {
	h := &recordingHandler{}
	pool := NewPool(2, 4, h, silentLogger{})
	pool.Start()

	for _, msg := range []string{"a", "b", "c"} {
		if err := pool.Enqueue([]byte(msg)); err != nil {
			t.Fatalf("Enqueue(%s): %v", msg, err)
		}
	}
	pool.Stop()

	if n := h.count(); n != 3 {
		t.Errorf("handled %d messages, want 3", n)
	}
}

func TestPoolQueueFull(t *testing.T) {
	h := &recordingHandler{release: make(chan struct{})}
	pool := NewPool(1, 1, h, silentLogger{})
	pool.Start()
	defer pool.Stop()
	defer close(h.release)

	if err := pool.Enqueue([]byte("first")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Wait for the worker to pick up the first job so the queue slot frees.
	deadline := time.Now().Add(time.Second)
	for len(pool.jobs) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := pool.Enqueue([]byte("second")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := pool.Enqueue([]byte("third")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestPoolSurvivesHandlerErrors(t *testing.T) {
	h := &recordingHandler{err: ErrInvalidRequest}
	pool := NewPool(1, 2, h, silentLogger{})
	pool.Start()

	pool.Enqueue([]byte("bad"))
	pool.Enqueue([]byte("also bad"))
	pool.Stop()

	if n := h.count(); n != 2 {
		t.Errorf("handled %d messages, want 2", n)
	}
}

func TestPoolEnqueueAfterStop(t *testing.T) {
	pool := NewPool(1, 1, &recordingHandler{}, silentLogger{})
	pool.Start()
	pool.Stop()

	if err := pool.Enqueue([]byte("late")); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}
