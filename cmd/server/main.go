package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pad-sync-server/internal/config"
	"pad-sync-server/internal/handler"
	"pad-sync-server/internal/repository"
	"pad-sync-server/internal/service"
	"pad-sync-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	roomRepo, itemRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer closeStore()

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerRoom,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	wsManager.SetMaxMessageSize(cfg.WebSocket.MaxMessageSize)
	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(wsManager))

	roomService := service.NewRoomService(roomRepo, itemRepo, wsManager)
	cleanupService := service.NewCleanupService(roomService, cfg.Cleanup.Interval)

	router := handler.NewRouter(cfg, handler.Dependencies{
		Rooms:   roomService,
		Cleanup: cleanupService,
		Hub:     wsManager,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsManager.Run(gctx)
	})

	g.Go(func() error {
		log.Printf("Starting Pad Sync Server on %s (env: %s, store: %s)", addr, cfg.Server.Env, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if cfg.Cleanup.Enabled {
		cleanupService.Start()
		log.Printf("[Cleanup] expired-room cleanup every %s", cfg.Cleanup.Interval)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		cleanupService.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.RoomRepository, repository.ItemRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Printf("Using SQLite store at %s", cfg.SQLite.Path)
		closer := func() {
			if err := db.Close(); err != nil {
				log.Printf("Failed to close SQLite store: %v", err)
			}
		}
		return repository.NewSQLiteRoomRepository(db), repository.NewSQLiteItemRepository(db), closer, nil

	default:
		client, err := kivik.New("couch", cfg.Database.URL())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
		}

		exists, err := client.DBExists(ctx, cfg.Database.Name)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to check database existence: %w", err)
		}
		if !exists {
			if err := client.CreateDB(ctx, cfg.Database.Name); err != nil {
				return nil, nil, nil, fmt.Errorf("failed to create database: %w", err)
			}
			log.Printf("Created database: %s", cfg.Database.Name)
		}

		log.Printf("Connected to CouchDB at %s:%s", cfg.Database.Host, cfg.Database.Port)
		closer := func() {
			if err := client.Close(); err != nil {
				log.Printf("Failed to close CouchDB client: %v", err)
			}
		}
		return repository.NewRoomRepository(client, cfg.Database.Name),
			repository.NewItemRepository(client, cfg.Database.Name),
			closer, nil
	}
}
