package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shiled-1/task-sheduler/config"
	"github.com/shiled-1/task-sheduler/handlers"
	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/repositories"
	"github.com/shiled-1/task-sheduler/services"
	"github.com/shiled-1/task-sheduler/utils"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logCloser, err := logging.InitLogger(logging.Options{
		SystemName: "taskboard",
		File:       cfg.LogFile,
		Level:      cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logCloser.Close()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting taskboard service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		logging.Logger.Fatalf("Event ID: STORE_OPEN_FAILED, Description: Opening %s store failed: %v", cfg.Storage, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Logger.Errorf("Event ID: STORE_CLOSE_FAILED, Description: %v", err)
		}
	}()

	hasher := utils.PasswordHasher{Cost: cfg.BcryptCost}
	if cfg.Seed {
		seed, err := repositories.DefaultSeed()
		if err != nil {
			logging.Logger.Fatalf("Event ID: SEED_INVALID, Description: %v", err)
		}
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err = repositories.Seed(seedCtx, store, seed, hasher.HashPassword, time.Now())
		seedCancel()
		if err != nil {
			logging.Logger.Fatalf("Event ID: SEED_FAILED, Description: %v", err)
		}
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	router := handlers.NewRouter(handlers.Services{
		Auth:  services.NewAuthService(store, tokens, hasher),
		Tasks: services.NewTaskService(store, store),
		Chat:  services.NewChatService(store, store),
	})

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logging.Logger.Info("Event ID: SERVER_SHUTDOWN, Description: Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
}

// openStore builds the configured record store. Remote backends sit behind
// circuit breakers.
func openStore(ctx context.Context, cfg config.Config) (repositories.Store, error) {
	var store repositories.Store
	switch cfg.Storage {
	case config.StorageLocal:
		local, err := repositories.NewLocalStore(cfg.LocalDBPath, 0)
		if err != nil {
			return nil, err
		}
		store = local
	case config.StorageMongo:
		mongoStore, err := repositories.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		store = repositories.NewBreakerStore(mongoStore,
			repositories.NewBreaker("mongo-store", cfg.BreakerMaxFailures, cfg.BreakerTimeout))
	default:
		store = repositories.NewMemoryStore()
	}

	if cfg.MessageStore == config.MessageStoreCassandra {
		messages, err := repositories.NewCassandraMessages(cfg.CassandraDB, cfg.CassKeyspace)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		store = repositories.WithMessages(store, repositories.NewBreakerMessages(messages,
			repositories.NewBreaker("cassandra-messages", cfg.BreakerMaxFailures, cfg.BreakerTimeout)))
	}

	logging.Logger.Infof("Event ID: STORE_READY, Description: Using %s store with %s message history", cfg.Storage, cfg.MessageStore)
	return store, nil
}
