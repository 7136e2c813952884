package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parlor-chat/internal/config"
	"parlor-chat/internal/eventbus"
	"parlor-chat/internal/handler"
	"parlor-chat/internal/middleware"
	"parlor-chat/internal/observability"
	"parlor-chat/internal/pipeline"
	"parlor-chat/internal/registry"
	"parlor-chat/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting chat server")

	bus := eventbus.New()
	reg := registry.New(bus, cfg.DefaultRoom)
	tracker := pipeline.NewActivityTracker()
	chatService := service.NewChatService(reg, tracker)

	roomHandler := handler.NewRoomHandler(chatService)
	wsHandler := handler.NewWebSocketHandler(chatService, cfg.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		apiLimiter := middleware.NewRateLimiter(20, 50)

		r.Use(apiLimiter.Middleware())

		r.Get("/rooms", roomHandler.List)
		r.Post("/rooms", roomHandler.Create)
		r.Get("/rooms/{id}", roomHandler.Get)
		r.Get("/rooms/{id}/messages", roomHandler.GetMessages)
		r.Get("/activity", roomHandler.Activity)
	})

	r.Get("/ws/chat", wsHandler.HandleConnection)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("chat server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	slog.Info("server stopped gracefully")
}
