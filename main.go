package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coreybb/callcheck/annotator"
	"github.com/coreybb/callcheck/api"
	"github.com/coreybb/callcheck/bridgeclient"
	"github.com/coreybb/callcheck/config"
	"github.com/coreybb/callcheck/datastore"
	"github.com/coreybb/callcheck/relay"
	rh "github.com/coreybb/callcheck/route-handlers"
	"github.com/coreybb/callcheck/scheduler"
	"github.com/coreybb/callcheck/storage"
)

const (
	shutdownTimeout = 15 * time.Second
	migrateTimeout  = 5 * time.Second
)

func main() {
	cfg, err := config.Load(os.Getenv("CALLCHECK_CONFIG"))
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	store, db, err := setupLastSeenStore(cfg.LastSeen)
	if err != nil {
		log.Fatalf("Last-seen store setup failed: %v", err)
	}
	if db != nil {
		defer db.Close()
	}
	lastSeen := relay.New(store)

	files := storage.NewLocalFileSource(cfg.Files.Logbook, cfg.Files.DXInput)
	log.Printf("Serving logbook %s and current callsign %s", cfg.Files.Logbook, cfg.Files.DXInput)

	logbookHandler := rh.NewLogbookHandler(files)
	relayHandler := rh.NewRelayHandler(lastSeen)

	apiRouter := api.SetupRoutes(logbookHandler, relayHandler)

	mainRouter := chi.NewRouter()
	mainRouter.Mount("/", apiRouter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollerDone := make(chan struct{})
	if cfg.Poller.Enabled {
		pollScheduler, closeRenderer, err := setupPoller(ctx, cfg, lastSeen)
		if err != nil {
			log.Fatalf("Poller setup failed: %v", err)
		}
		defer closeRenderer()

		mainRouter.Post("/scheduler/tick", pollScheduler.HandleTick)

		go func() {
			defer close(pollerDone)
			if err := pollScheduler.Run(ctx); err != nil {
				log.Printf("ERROR (Scheduler): %v", err)
			}
		}()
	} else {
		close(pollerDone)
	}

	startServer(ctx, cfg.Port, mainRouter)
	<-pollerDone
}

func setupLastSeenStore(cfg config.LastSeenConfig) (relay.Store, *sql.DB, error) {
	if cfg.Driver == "memory" {
		return relay.NewMemoryStore(), nil, nil
	}

	db, err := datastore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	repo := datastore.NewLastSeenRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}

func setupPoller(ctx context.Context, cfg config.Config, lastSeen *relay.Relay) (*scheduler.Scheduler, func(), error) {
	renderer, err := annotator.ConnectRod(ctx, cfg.Poller.BrowserControlURL, cfg.Poller.LookupBaseURL, annotator.DefaultSelector)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to attach to lookup page: %w", err)
	}
	closeRenderer := func() {
		if err := renderer.Close(); err != nil {
			log.Printf("WARN (RodRenderer): Close failed: %v", err)
		}
	}

	opts := scheduler.Options{
		Interval:      cfg.Poller.Interval,
		LookupBaseURL: cfg.Poller.LookupBaseURL,
	}
	if cfg.Poller.WatchDXInput {
		opts.WatchPath = cfg.Files.DXInput
	}

	client := bridgeclient.New(cfg.Poller.BridgeURL, nil)
	return scheduler.New(client, lastSeen, renderer, opts), closeRenderer, nil
}

func startServer(ctx context.Context, port string, router http.Handler) {
	server := &http.Server{
		Addr:              "localhost:" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Server running at http://localhost:%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done() // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
