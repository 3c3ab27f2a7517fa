// Command loadtest drives the moderation service end to end. It creates
// N pending testimonials in PostgreSQL, publishes a moderation request for
// each on NATS, and measures the time until the verdict comes back on the
// project's result subject. Each pass over the sample set goes to its own
// project, so repeated samples are not rejected as duplicates of each other.
//
// Usage:
//
//	loadtest [options]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/vouch/testimonials/internal/database"
	"github.com/vouch/testimonials/internal/messaging"
	"github.com/vouch/testimonials/internal/moderation"
	"github.com/vouch/testimonials/internal/testimonial"
)

// samples mixes clean, profane, spammy and negative testimonials so every
// verdict shows up in the report.
var samples = []string{
	"The onboarding was smooth and the support team answered within minutes.",
	"I absolutely love this product, best purchase ever!",
	"Buy now!! Click here! http://a.com http://b.com http://c.com",
	"Total scam, terrible service and the worst support I have seen.",
	"f.u.c.k this company",
	"Good tool, though the reporting page is a bit slow.",
	"ok",
}

func main() {
	natsURL := flag.String("nats", messaging.DefaultNATSConfig().URL, "NATS server URL")
	dbURL := flag.String("database", "postgres://localhost:5432/testimonials?sslmode=disable", "PostgreSQL URL")
	count := flag.Int("n", 1000, "Number of testimonials to submit")
	concurrency := flag.Int("concurrency", 20, "Publisher goroutines")
	timeout := flag.Duration("timeout", 30*time.Second, "Time to wait for outstanding verdicts")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, *dbURL)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(*dbURL); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	store := testimonial.NewStore(db)

	settings := moderation.Config{
		AutoModerationEnabled: true,
		AutoApproveVerified:   true,
		ProfanityLevel:        moderation.ProfanityStrict,
	}
	projects := make([]string, cycles(*count))
	for c := range projects {
		projects[c] = uuid.NewString()
		if err := store.CreateProject(ctx, projects[c], fmt.Sprintf("loadtest-%d", c), settings); err != nil {
			log.Fatalf("failed to create project: %v", err)
		}
	}

	cfg := messaging.DefaultNATSConfig()
	cfg.URL = *natsURL
	cfg.Name = "testimonial-loadtest"
	nc, err := messaging.NewNATSClient(cfg)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	collector := NewCollector()
	var sentAt sync.Map // testimonial id -> time.Time
	done := make(chan struct{})
	var doneOnce sync.Once

	onResult := func(data []byte) {
		var resp moderation.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			collector.AddError()
			return
		}
		start, ok := sentAt.LoadAndDelete(resp.TestimonialID)
		if !ok {
			return
		}
		collector.AddResult(resp, time.Since(start.(time.Time)))
		if collector.Received() == *count {
			doneOnce.Do(func() { close(done) })
		}
	}
	for _, projectID := range projects {
		if err := nc.SubscribeModerationResults(projectID, onResult); err != nil {
			log.Fatalf("failed to subscribe to results: %v", err)
		}
	}

	fmt.Printf("Submitting %d testimonials across %d projects (concurrency=%d)\n", *count, len(projects), *concurrency)

	ids := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ids {
				if err := submit(ctx, store, nc, &sentAt, projects, i); err != nil {
					log.Printf("[loadtest] submit %d: %v", i, err)
					collector.AddError()
					continue
				}
				collector.AddSent()
			}
		}()
	}
	for i := 0; i < *count && ctx.Err() == nil; i++ {
		ids <- i
	}
	close(ids)
	wg.Wait()

	select {
	case <-done:
	case <-time.After(*timeout):
		fmt.Println("timed out waiting for verdicts")
	case <-ctx.Done():
	}

	collector.Report(os.Stdout)
}

// cycles is the number of passes over samples needed for n submissions.
func cycles(n int) int {
	return max(1, (n+len(samples)-1)/len(samples))
}

// assignment returns the project index and content for submission i. A
// project never receives the same sample twice.
func assignment(i int) (project int, content string) {
	return i / len(samples), samples[i%len(samples)]
}

func submit(ctx context.Context, store *testimonial.Store, nc *messaging.NATSClient, sentAt *sync.Map, projects []string, i int) error {
	project, content := assignment(i)
	projectID := projects[project]
	t := testimonial.Testimonial{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Content:     content,
		AuthorEmail: fmt.Sprintf("reviewer%d@example.com", i%50),
		Rating:      1 + rand.IntN(5),
		IsVerified:  i%3 == 0,
	}
	if err := store.Insert(ctx, t); err != nil {
		return err
	}

	req := moderation.Request{
		RequestID:     uuid.NewString(),
		TestimonialID: t.ID,
		ProjectID:     projectID,
		Content:       t.Content,
		AuthorEmail:   t.AuthorEmail,
		Rating:        t.Rating,
		IsVerified:    t.IsVerified,
		IP:            fmt.Sprintf("198.51.100.%d", i%200),
		SubmittedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	sentAt.Store(t.ID, time.Now())
	if err := nc.PublishModerationRequest(data); err != nil {
		sentAt.Delete(t.ID)
		return err
	}
	return nil
}
