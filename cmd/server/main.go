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

	handler "webui-dashboard-api/api"
	"webui-dashboard-api/pkg/auth"
	"webui-dashboard-api/pkg/config"
	"webui-dashboard-api/pkg/database"
	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/middleware"
)

func main() {
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.Environment, cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	db, err := database.NewDatabase(context.Background(), database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		LocalDBPath: cfg.LocalDBPath,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close()

	router := handler.NewRouter(handler.Dependencies{
		Config:   cfg,
		DB:       db,
		Identity: auth.NewProvider(cfg),
		Logger:   log,
		Metrics:  middleware.NewMetrics(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting server",
			"addr", srv.Addr,
			"environment", cfg.Environment,
			"auth_mode", cfg.AuthMode,
			"local_db", cfg.UseLocalDB,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Could not listen", "addr", srv.Addr, "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	log.Info("Server exiting gracefully")
}
