package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/ec-storefront/internal/api"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/backend"
	"github.com/example/ec-storefront/internal/cart"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/infrastructure/store"
)

const relayInterval = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Storefront] Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Storefront] Invalid configuration: %v", err)
	}

	log.Println("[Storefront] ========================================")
	log.Println("[Storefront] EC Storefront")
	log.Println("[Storefront] ========================================")
	log.Printf("[Storefront] Backend: %s", cfg.BackendURL)
	log.Printf("[Storefront] Web dir: %s", cfg.WebDir)

	// Backend API client
	client := backend.NewClient(cfg.BackendURL, backend.WithTimeout(cfg.BackendTimeout))

	// Token verification
	verifier := auth.NewTokenVerifier(cfg.JWTSecret)
	if !verifier.VerifiesSignature() {
		log.Println("[Storefront] JWT_SECRET not set: tokens are checked for expiry only")
	}

	// Session cookie seal
	var sealer *auth.Sealer
	if cfg.SessionKey != "" {
		sealer = auth.NewSealer([]byte(cfg.SessionKey))
	} else {
		sealer, err = auth.NewRandomSealer()
		if err != nil {
			log.Fatalf("[Storefront] %v", err)
		}
		log.Println("[Storefront] SESSION_KEY not set: sessions end when the process restarts")
	}

	// Token revocation and reset throttling
	var revoker auth.Revoker = auth.NewMemoryRevoker()
	var resets auth.Limiter = auth.NewMemoryLimiter(cfg.ResetLimit())
	if cfg.RedisURL != "" {
		rdb, err := auth.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[Storefront] Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		revoker = auth.NewRedisRevoker(rdb, "")
		resets = auth.NewRedisLimiter(rdb, "storefront:reset", cfg.ResetLimit())
		log.Println("[Storefront] Revoked tokens: Redis")
	} else {
		log.Println("[Storefront] Revoked tokens: in memory")
	}

	// Kafka producer for checkout events
	var publisher store.Publisher
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		log.Printf("[Storefront] Kafka: %v (topic %s)", cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	// Checkout event log
	var eventStore interface {
		store.EventStoreInterface
		store.Relay
	}
	if cfg.DatabaseURL != "" {
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[Storefront] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()
		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("[Storefront] Failed to prepare events table: %v", err)
		}
		eventStore = store.NewPostgresEventStore(db, publisher)
		log.Println("[Storefront] Event log: PostgreSQL")
	} else {
		eventStore = store.NewEventStore(publisher)
		log.Println("[Storefront] Event log: in memory")
	}

	// Per-user cart stores
	carts := cart.NewRegistry(backend.NewCartService(client), cfg.CartIdleTTL, cart.WithRecorder(eventStore))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		carts.Run(ctx)
	}()
	if publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RunRelay(ctx, eventStore, relayInterval)
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		Backend:    client,
		Carts:      carts,
		Verifier:   verifier,
		Sealer:     sealer,
		Revoker:    revoker,
		Resets:     resets,
		Checkouts:  eventStore,
		Policy:     cfg.Policy(),
		SessionTTL: cfg.SessionTTL,
		WebDir:     cfg.WebDir,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[Storefront] Server started on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Storefront] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Storefront] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Storefront] Shutdown error: %v", err)
	}

	wg.Wait()
}
