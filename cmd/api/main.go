package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearcomply/compliance-service/internal/auth"
	"github.com/clearcomply/compliance-service/internal/db"
	apphttp "github.com/clearcomply/compliance-service/internal/http"
	"github.com/clearcomply/compliance-service/internal/messaging"
	"github.com/clearcomply/compliance-service/internal/onboarding"
	"github.com/clearcomply/compliance-service/internal/session"
	"github.com/clearcomply/compliance-service/internal/telemetry"
)

func main() {
	log.Println("compliance-service starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Telemetry first so everything below is instrumented
	telemetryProvider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig())
	if err != nil {
		log.Printf("Warning: telemetry initialization failed: %v", err)
	}
	if telemetryProvider != nil {
		defer func() {
			if err := telemetryProvider.Shutdown(context.Background()); err != nil {
				log.Printf("Warning: telemetry shutdown failed: %v", err)
			}
		}()
	}

	var metrics *telemetry.Metrics
	if m, err := telemetry.InitMetrics(); err != nil {
		log.Printf("Warning: failed to initialize metrics: %v", err)
	} else {
		metrics = m
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	// Event publisher is best effort: the service runs without RabbitMQ,
	// it just stops emitting events.
	var publisher messaging.PublisherInterface
	if pub, err := messaging.NewPublisher(); err != nil {
		log.Printf("Warning: RabbitMQ unavailable, events disabled: %v", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	authCfg := auth.LoadConfig()
	keys, err := auth.NewKeySet(authCfg.JWKSURL, 0)
	if err != nil {
		log.Fatalf("failed to load JWKS from %s: %v", authCfg.JWKSURL, err)
	}
	defer keys.Close()
	verifier := auth.NewVerifier(authCfg, keys)

	permsPath := os.Getenv("PERMISSIONS_FILE")
	if permsPath == "" {
		permsPath = "permissions.yml"
	}
	perms, err := auth.LoadPermissions(permsPath)
	if err != nil {
		log.Fatalf("failed to load permissions from %s: %v", permsPath, err)
	}

	store, err := session.NewStoreFromEnv()
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}

	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatalf("WEBHOOK_SECRET is required")
	}

	router, onboardingService := apphttp.SetupRouter(apphttp.Dependencies{
		DB:            database,
		Verifier:      verifier,
		Perms:         perms,
		Publisher:     publisher,
		Store:         store,
		Metrics:       metrics,
		WebhookSecret: webhookSecret,
	})

	// Consume signup events so new users get their first organization without
	// any extra request. Also best effort.
	consumer, err := messaging.NewSignupConsumer(func(ctx context.Context, data messaging.UserSignedUpData) {
		onboardingService.OnboardAfterSignup(ctx, data.UserID, onboarding.Profile{
			Email:    data.Email,
			FullName: data.FullName,
		})
	})
	if err != nil {
		log.Printf("Warning: signup consumer unavailable: %v", err)
	} else {
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Warning: signup consumer stopped: %v", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      apphttp.CORSMiddleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("compliance-service listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: server shutdown failed: %v", err)
	}
}
