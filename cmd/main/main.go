package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wwasd-relay/src/cache"
	"wwasd-relay/src/config"
	"wwasd-relay/src/helpers"
	"wwasd-relay/src/interfaces"
	"wwasd-relay/src/lists"
	"wwasd-relay/src/logger"
	"wwasd-relay/src/query"
	"wwasd-relay/src/server"
	"wwasd-relay/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "./config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Durable store (sqlite default, postgres by config)
	var store interfaces.IDurableStore

	switch cfg.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.MConfig, appLogger)
	default:
		store, err = storage.NewSQLiteStore(cfg.MConfig, appLogger)
	}
	if err != nil {
		appLogger.Critical("Failed to init durable store: %v", err)
	}

	// An unreachable database degrades the relay to memory-only mode; it
	// must never prevent startup.
	if err := helpers.RetryWithBackoff("durable store open", 3, time.Second, store.Initialize); err != nil {
		appLogger.Error("Durable store unavailable, running memory-only: %v", err)
		store = nil
	}

	// 3. Caches, reloaded from the last successful dump
	state := cache.NewStateCache()
	port := cache.NewPortCache()

	if store != nil {
		if recs, err := store.LoadStateDump(); err != nil {
			appLogger.Warning("State reload failed, starting empty: %v", err)
		} else {
			appLogger.Info("Reloaded %d state records", state.Load(recs))
		}

		if snap, err := store.LoadPortSnapshot(); err != nil {
			appLogger.Warning("Port reload failed, starting empty: %v", err)
		} else if snap != nil {
			port.Push(*snap)
			appLogger.Info("Reloaded port snapshot (%d positions)", len(snap.Positions))
		}
	}

	// 4. Read-side components
	resolver := lists.NewResolver(cfg.Lists)
	appLogger.Info("Configured lists: %v", resolver.Names())

	queryEngine := query.NewEngine(state, resolver, cfg.StateFreshSeconds)

	// 5. Background dump writer
	writer := storage.NewDumpWriter(store, state, port, appLogger)
	writer.Start()

	// 6. HTTP server
	srv := server.NewRelayServer(cfg.MConfig, appLogger, state, port, queryEngine, writer)
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 7. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	srv.Stop()

	// Final flush so a clean shutdown loses nothing
	writer.Stop()
	if store != nil {
		if err := store.Close(); err != nil {
			appLogger.Warning("Store close failed: %v", err)
		}
	}
}
