package main

import (
	"aichat-relay/internal/api"
	"aichat-relay/internal/config"
	"aichat-relay/internal/handlers"
	"aichat-relay/internal/services"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	log.Println("Starting AI Chat relay...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Dependencies (Services, Handlers)
	// One client shared by all requests; the inbound request context cancels
	// the upstream call when the browser goes away.
	upstreamClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	relayService := services.NewRelayService(upstreamClient)
	log.Println("RelayService initialized.")

	relayHandler := handlers.NewRelayHandler(relayService)
	log.Println("RelayHandler initialized.")

	// 3. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		RelayHandler: relayHandler,
		Config:       cfg,
	})
	log.Println("HTTP router configured.")

	// 4. Configure and Start HTTP Server
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Relay listening on port %s", cfg.HTTPPort)
		log.Printf("Chat endpoint: POST http://localhost:%s/api/chat", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
