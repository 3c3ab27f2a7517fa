package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vouch/testimonials/internal/moderation"
)

// Collector aggregates round-trip results from many publisher goroutines.
type Collector struct {
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[moderation.Status]int
	fallbacks int
	errors    int
	sent      int
	startTime time.Time
}

// NewCollector creates a collector with the start time set to now.
func NewCollector() *Collector {
	return &Collector{statuses: make(map[moderation.Status]int), startTime: time.Now()}
}

// AddSent counts a published request.
func (c *Collector) AddSent() {
	c.mu.Lock()
	c.sent++
	c.mu.Unlock()
}

// AddResult records a verdict and its round-trip latency.
func (c *Collector) AddResult(resp moderation.Response, d time.Duration) {
	c.mu.Lock()
	c.latencies = append(c.latencies, d)
	c.statuses[resp.Status]++
	if resp.Fallback {
		c.fallbacks++
	}
	c.mu.Unlock()
}

// AddError increments the error counter.
func (c *Collector) AddError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// Received returns how many verdicts arrived.
func (c *Collector) Received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.latencies)
}

// Report writes a summary of throughput, verdict mix and latency
// percentiles.
func (c *Collector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.startTime)
	fmt.Fprintln(w, "\n=== Moderation Load Test Results ===")
	fmt.Fprintf(w, "Duration:   %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Sent:       %d\n", c.sent)
	fmt.Fprintf(w, "Received:   %d\n", len(c.latencies))
	fmt.Fprintf(w, "Errors:     %d\n", c.errors)
	fmt.Fprintf(w, "Fallbacks:  %d\n", c.fallbacks)
	if c.sent > 0 {
		fmt.Fprintf(w, "Lost:       %.2f%%\n", float64(c.sent-len(c.latencies))/float64(c.sent)*100)
	}

	fmt.Fprintln(w, "\n--- Verdicts ---")
	for _, s := range []moderation.Status{moderation.StatusApproved, moderation.StatusPending, moderation.StatusFlagged, moderation.StatusRejected} {
		fmt.Fprintf(w, "  %-9s %d\n", s, c.statuses[s])
	}

	if len(c.latencies) > 0 {
		fmt.Fprintln(w, "\n--- Round-trip Latency ---")
		p := percentiles(c.latencies)
		fmt.Fprintf(w, "  avg: %v  p50: %v  p95: %v  p99: %v  max: %v  (n=%d)\n",
			p.avg.Round(time.Microsecond),
			p.p50.Round(time.Microsecond),
			p.p95.Round(time.Microsecond),
			p.p99.Round(time.Microsecond),
			p.max.Round(time.Microsecond),
			len(c.latencies),
		)
	}
	fmt.Fprintln(w)
}

type latencySummary struct {
	avg, p50, p95, p99, max time.Duration
}

// percentiles sorts durations in place and summarises them. durations must
// not be empty.
func percentiles(durations []time.Duration) latencySummary {
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	n := len(durations)
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	return latencySummary{
		avg: sum / time.Duration(n),
		p50: durations[n/2],
		p95: durations[int(math.Ceil(float64(n)*0.95))-1],
		p99: durations[int(math.Ceil(float64(n)*0.99))-1],
		max: durations[n-1],
	}
}
