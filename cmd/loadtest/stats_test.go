package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vouch/testimonials/internal/moderation"
)

func TestPercentiles(t *testing.T) {
	durations := make([]time.Duration, 100)
	for i := range durations {
		durations[len(durations)-1-i] = time.Duration(i+1) * time.Millisecond
	}

	p := percentiles(durations)
	if p.p50 != 51*time.Millisecond {
		t.Errorf("p50 = %v, want 51ms", p.p50)
	}
	if p.p95 != 95*time.Millisecond || p.p99 != 99*time.Millisecond {
		t.Errorf("p95 = %v, p99 = %v", p.p95, p.p99)
	}
	if p.max != 100*time.Millisecond {
		t.Errorf("max = %v, want 100ms", p.max)
	}
	if p.avg != 50500*time.Microsecond {
		t.Errorf("avg = %v, want 50.5ms", p.avg)
	}
}

func TestCollectorReport(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 3; i++ {
		c.AddSent()
	}
	c.AddResult(moderation.Response{Status: moderation.StatusApproved}, 2*time.Millisecond)
	c.AddResult(moderation.Response{Status: moderation.StatusPending, Fallback: true}, 4*time.Millisecond)
	c.AddError()

	var buf bytes.Buffer
	c.Report(&buf)
	out := buf.String()

	for _, want := range []string{"Sent:       3", "Received:   2", "Errors:     1", "Fallbacks:  1", "APPROVED  1", "Lost:       33.33%"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
