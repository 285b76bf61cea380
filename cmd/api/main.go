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

	"github.com/shantamg/meet-without-fear-sub002/internal/app"
	"github.com/shantamg/meet-without-fear-sub002/internal/config"
	"github.com/shantamg/meet-without-fear-sub002/internal/notify"
	"github.com/shantamg/meet-without-fear-sub002/internal/reasoner"
	"github.com/shantamg/meet-without-fear-sub002/internal/store"
)

func main() {
	cfg := config.Load()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := store.Open(startCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(startCtx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	startCancel()

	dataStore := store.NewPostgresStore(db)

	var notifier notify.Publisher = notify.NoopPublisher{}
	if cfg.RedisURL != "" {
		publisher, err := notify.NewRedisPublisher(cfg.RedisURL)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer publisher.Close()
		notifier = publisher
	} else {
		log.Printf("REDIS_URL not set, notifications disabled")
	}

	var reasonerClient reasoner.Client = reasoner.Unavailable{}
	if cfg.OpenAIKey != "" {
		breaker := reasoner.NewAvailabilityBreaker(cfg.BreakerFailureThreshold, cfg.BreakerCooldown)
		client, err := reasoner.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.AnalysisTimeout, breaker)
		if err != nil {
			log.Fatalf("configure reasoner: %v", err)
		}
		reasonerClient = client
	} else {
		log.Printf("OPENAI_API_KEY not set, gap analysis will use the conservative fallback")
	}

	service := app.New(cfg, dataStore, reasonerClient, notifier)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewHTTPServer(service, cfg.CORSOrigin),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-shutdown
	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
