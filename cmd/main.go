package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/ekuiter/variED-NG/internal"
	"github.com/ekuiter/variED-NG/runtime"
	"github.com/ekuiter/variED-NG/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (and the graceful stop)
// executes before the program exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.Level()}))

	// 2. Collaboration core
	var seed runtime.Seeder
	if config.SeedExamples {
		seed = runtime.ExampleSeeder
	}
	directory, err := runtime.NewDirectory(log, seed)
	if err != nil {
		return fmt.Errorf("directory setup failed: %w", err)
	}
	registry := runtime.NewRegistry(log, config.QueueLimit)
	hub := runtime.NewHub(log, registry, directory, runtime.PolicyOpen{})

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewMonitorWorker(log, hub.Stats, config.MonitorInterval))
	go sup.Run(ctx)

	// 5. HTTP & websocket server
	socket := runtime.NewSocketServer(log, hub, config.WriteTimeout)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: runtime.NewMux(log, socket, hub.Stats, stop),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", "err", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
