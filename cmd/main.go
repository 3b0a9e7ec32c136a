// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/sympose/conf-reg-pricing/internal/config"
	"github.com/sympose/conf-reg-pricing/internal/database"
	"github.com/sympose/conf-reg-pricing/internal/handler"
	"github.com/sympose/conf-reg-pricing/internal/logger"
	"github.com/sympose/conf-reg-pricing/internal/repository"
	"github.com/sympose/conf-reg-pricing/internal/service"
)

func main() {
	ctx := context.Background()

	// ── 1. Configuration and logging ─────────────────────────────────────
	_ = godotenv.Load() // optional .env for local development

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// ── 2. Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, zlog)
	if err != nil {
		zlog.Fatalw("database", "error", err)
	}
	defer pool.Close()
	zlog.Infow("connected to postgres", "host", cfg.Database.Host, "db", cfg.Database.Name)

	// ── 3. Wire up layers ────────────────────────────────────────────────
	ruleRepo := repository.NewRuleRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	svc := service.NewPricingService(ruleRepo, regRepo, cfg.Pricing.Settings(), zlog)
	h := handler.NewPricingHandler(svc, zlog)

	// ── 4. Build the router ──────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(zlog))    // structured access log
	r.Use(handler.CORS)            // permissive CORS for the wizard UI

	// Health
	r.Get("/health", handler.HealthCheck)

	// API routes
	r.Route("/pricing", func(r chi.Router) {
		r.Post("/quote", h.Quote)
		r.Get("/tiers", h.ListTiers)
		r.Get("/workshops", h.ListWorkshops)
	})
	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Get("/{id}", h.GetRegistration)
		r.Post("/{id}/verify-payment", h.VerifyPayment)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Post("/discounts", h.CreateDiscount)
	})

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		zlog.Infow("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("server error", "error", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatalw("graceful shutdown failed", "error", err)
	}
	zlog.Info("server stopped")
}
