package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zg-client/internal/config"
	"zg-client/internal/fakeapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	server := fakeapi.NewServer(cfg.FakeAPI, cfg.CORS)

	addr := fmt.Sprintf("%s:%s", cfg.FakeAPI.Host, cfg.FakeAPI.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting ZG fake API on %s (bot: @%s, seed: %v)", addr, cfg.FakeAPI.BotUsername, cfg.FakeAPI.SeedCatalog)
		if cfg.FakeAPI.AdminTelegramID != 0 {
			log.Printf("Telegram user %d signs in as admin", cfg.FakeAPI.AdminTelegramID)
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
