package main

import (
	"context"
	"errors"
	"log"
	"manifest-service/internal/adapters/changefeed"
	"manifest-service/internal/adapters/notify"
	"manifest-service/internal/adapters/repositories"
	"manifest-service/internal/api"
	"manifest-service/internal/api/handlers"
	"manifest-service/internal/config"
	"manifest-service/internal/platform/db"
	"manifest-service/internal/platform/obs"
	"manifest-service/internal/ports"
	"manifest-service/internal/services"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, change feed, webhook) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local sqlite runs get their schema on startup; Postgres is prepared with dbtool.
	if cfg.DBDriver == db.DriverSQLite {
		if err := repositories.InitSchema(ctx, conn); err != nil {
			log.Fatal(err)
		}
	}

	store := repositories.NewSQLRecordStore(conn, cfg.DBDriver)

	var feed ports.ChangeFeed
	if cfg.RedisURL != "" {
		rf, err := changefeed.NewRedisFeed(ctx, cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			log.Fatal(err)
		}
		defer rf.Close()
		feed = rf
	} else {
		log.Println("REDIS_URL not set; live updates are limited to this instance")
		feed = changefeed.NewMemoryFeed()
	}

	metrics := obs.NewMetrics()
	coordinator := &services.SubmissionCoordinator{
		Engine:   services.NewTransitionEngine(store, store),
		Notifier: notify.NewNotifier(cfg.WebhookURL, cfg.WebhookTimeout, cfg.NotifyLocation),
		Feed:     feed,
		Metrics:  metrics,
	}
	sessions := handlers.NewSessionRegistry()
	defer sessions.CloseAll()

	router := api.NewRouter(api.Deps{
		Store:       store,
		Feed:        feed,
		Gate:        &services.AuthGate{Roster: store},
		Reconciler:  &services.Reconciler{Store: store, Coordinator: coordinator},
		Batch:       &services.BatchProcessor{Coordinator: coordinator, Concurrency: cfg.BatchConcurrency},
		Sessions:    sessions,
		Metrics:     metrics,
		StaleWindow: cfg.StaleWindow,
	})

	log.Printf("Server listening addr=:%s driver=%s", cfg.Port, cfg.DBDriver)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-stopped
	coordinator.Wait()
}
