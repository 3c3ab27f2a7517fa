package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vouch/testimonials/internal/classifier"
	"github.com/vouch/testimonials/internal/config"
	"github.com/vouch/testimonials/internal/corpus"
	"github.com/vouch/testimonials/internal/database"
	"github.com/vouch/testimonials/internal/messaging"
	"github.com/vouch/testimonials/internal/metrics"
	"github.com/vouch/testimonials/internal/moderation"
	"github.com/vouch/testimonials/internal/testimonial"
	"github.com/vouch/testimonials/internal/velocity"
	"github.com/vouch/testimonials/internal/worker"
)

func main() {
	log.Println("Starting testimonial moderation service...")

	cfg, err := config.Load(".", "/etc/moderator")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// PostgreSQL setup.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Redis setup.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancel()

	// NATS setup.
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// Decision engine.
	opts := []moderation.Option{moderation.WithClassifierTimeout(cfg.AITimeout)}
	if cfg.LexiconPath != "" {
		lex, err := moderation.LoadLexiconFile(cfg.LexiconPath)
		if err != nil {
			log.Fatalf("failed to load lexicon: %v", err)
		}
		opts = append(opts, moderation.WithLexicon(lex))
	}
	switch cfg.AIProvider {
	case "openai":
		opts = append(opts, moderation.WithClassifier(classifier.NewOpenAI(cfg.OpenAIAPIKey)))
	case "gemini":
		gemini, err := classifier.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("failed to create Gemini classifier: %v", err)
		}
		defer gemini.Close()
		opts = append(opts, moderation.WithClassifier(gemini))
	}
	engine := moderation.NewEngine(opts...)

	store := testimonial.NewStore(db)
	handler := worker.NewHandler(worker.Deps{
		Engine:    engine,
		Settings:  store,
		Corpus:    corpus.NewCache(rdb, store, cfg.CorpusLimit, cfg.CorpusCacheTTL),
		Counter:   velocity.NewTracker(rdb, cfg.VelocityWindow),
		Verdicts:  store,
		Publisher: natsClient,
	})
	pool := worker.NewPool(cfg.WorkerPoolSize, cfg.WorkerQueueSize, handler, log.Default())
	pool.Start()

	err = natsClient.SubscribeModerationRequests(func(data []byte) {
		switch err := pool.Enqueue(data); {
		case errors.Is(err, worker.ErrQueueFull):
			log.Printf("[moderator] queue full, dropping request (%d bytes)", len(data))
		case errors.Is(err, worker.ErrStopped):
			log.Printf("[moderator] shutting down, dropping request (%d bytes)", len(data))
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to moderation requests: %v", err)
	}

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[metrics] server error: %v", err)
		}
	}()

	log.Printf("Testimonial moderation service running")
	log.Printf("  nats_url:     %s", cfg.NATSURL)
	log.Printf("  redis_addr:   %s", cfg.RedisAddr)
	log.Printf("  metrics_addr: %s", cfg.MetricsAddr)
	log.Printf("  workers:      %d (queue %d)", cfg.WorkerPoolSize, cfg.WorkerQueueSize)
	log.Printf("  ai_provider:  %q", cfg.AIProvider)

	// Graceful shutdown: stop intake, finish queued work, then close
	// the connections the workers use.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	if err := natsClient.DrainModerationRequests(messaging.DefaultDrainTimeout); err != nil {
		log.Printf("[moderator] %v", err)
	}
	pool.Stop()
	natsClient.Close()

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	metricsServer.Shutdown(ctx)
	cancel()

	rdb.Close()
	db.Close()
}
