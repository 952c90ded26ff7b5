// Package main is the entry point for the gaushala ops API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gaushala/internal/app"
	"gaushala/internal/config"
	"gaushala/internal/domain/auth"
	v1 "gaushala/internal/infrastructure/http/v1"
	"gaushala/internal/infrastructure/http/v1/middleware"
	"gaushala/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting gaushala ops server")

	a, err := app.New(ctx, cfg, log, "gaushala-server")
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}
	defer a.Close()

	// --- Token validation ---
	var tokens middleware.TokenValidator
	if cfg.Auth.JWTSecret != "" {
		svc, err := auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret))
		if err != nil {
			log.Fatalw("failed to create jwt service", "error", err)
		}
		tokens = svc
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:    log,
		Probes:    a.Probes(),
		Reads:     a.TxM,
		Inventory: a.Inventory,
		Sales:     a.Sales,
		Summary:   a.Summary,
		Journal:   a.Journal,
		Runner:    a.Orchestrator,
		Tokens:    tokens,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // recompute runs synchronously
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
