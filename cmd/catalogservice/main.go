package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"movie-catalog/internal/api"
	"movie-catalog/internal/cache"
	"movie-catalog/internal/config"
	"movie-catalog/internal/service"
	"movie-catalog/internal/store"
	"movie-catalog/internal/validation"
	"movie-catalog/pkg/auth"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("service terminated", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	if err := store.InitSchema(context.Background(), db, logger); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	cacheStore, err := cache.NewBadgerStore(logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cacheStore.Close()

	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}

	movieStore, err := store.NewPostgresMovieStore(db, logger)
	if err != nil {
		return err
	}
	ratingStore, err := store.NewPostgresRatingStore(db, logger)
	if err != nil {
		return err
	}
	userStore, err := store.NewPostgresUserStore(db, logger)
	if err != nil {
		return err
	}

	movieValidator := validation.NewMovieValidator(movieStore)
	movieService := service.NewMovieService(movieStore, movieValidator, cacheStore, cfg.Cache.TTL, logger)
	ratingService := service.NewRatingService(ratingStore, movieStore, cacheStore, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())
	movieHandler := api.NewMovieHandler(movieService, ratingService, logger, validate, cfg.API.PageSize)
	identityHandler := api.NewIdentityHandler(userStore, tokens, logger, validate)
	healthHandler := api.NewHealthHandler(db, logger)
	mw := api.NewMiddleware(tokens, logger)

	router := api.NewRouter(movieHandler, identityHandler, healthHandler, mw)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
