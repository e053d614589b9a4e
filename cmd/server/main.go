package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/config"
	"weddingrsvp/internal/database"
	"weddingrsvp/internal/handlers"
	"weddingrsvp/internal/mailer"
	"weddingrsvp/internal/match"
	"weddingrsvp/internal/repository"
	"weddingrsvp/internal/security"
	"weddingrsvp/internal/service"
	"weddingrsvp/internal/token"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Str("type", cfg.DatabaseType).Msg("database connection established")

	ctx := context.Background()
	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations completed")

	guestRepo := repository.NewGuestRepository(db)

	mail, err := mailer.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mailer")
	}

	tokens := token.NewService(cfg.SecretKey, cfg.SessionLifetime, cfg.MagicLinkTTL)
	matcher := match.New(guestRepo)
	limiter := security.NewLimiter(map[string]security.Limit{
		"login":          {Max: cfg.LoginLimit.Max, Window: cfg.LoginLimit.Window},
		"recover":        {Max: cfg.RecoverLimit.Max, Window: cfg.RecoverLimit.Window},
		"request_access": {Max: cfg.RequestAccessLimit.Max, Window: cfg.RequestAccessLimit.Window},
	})

	authService := service.NewAuthService(guestRepo, matcher, tokens, limiter, mail,
		cfg.SendAccessMode, cfg.RSVPBaseURL, cfg.EmailTimeout, cfg.DefaultLanguage)
	rsvpService := service.NewRSVPService(guestRepo, mail,
		cfg.RSVPDeadline, cfg.RSVPBaseURL, cfg.EmailTimeout, cfg.DefaultLanguage)
	importService := service.NewImportService(guestRepo)

	middleware := handlers.NewMiddleware(authService, limiter, cfg.AdminAPIKey)
	authHandler := handlers.NewAuthHandler(authService,
		cfg.LoginLimit.Window, cfg.RecoverLimit.Window, cfg.RequestAccessLimit.Window)
	guestHandler := handlers.NewGuestHandler(rsvpService)
	adminHandler := handlers.NewAdminHandler(importService)

	mux := http.NewServeMux()

	// Public routes, throttled by client IP as well as by the identifier
	// inside each service.
	mux.HandleFunc("POST /api/login",
		middleware.RateLimit("login", cfg.LoginLimit.Window, authHandler.Login))
	mux.HandleFunc("POST /api/recover-code",
		middleware.RateLimit("recover", cfg.RecoverLimit.Window, authHandler.RecoverCode))
	mux.HandleFunc("POST /api/request-access",
		middleware.RateLimit("request_access", cfg.RequestAccessLimit.Window, authHandler.RequestAccess))
	mux.HandleFunc("POST /api/magic-login",
		middleware.RateLimit("login", cfg.LoginLimit.Window, authHandler.MagicLogin))

	// Guest routes
	mux.HandleFunc("GET /api/guest/me", middleware.RequireGuest(guestHandler.Me))
	mux.HandleFunc("POST /api/guest/me/rsvp", middleware.RequireGuest(guestHandler.SubmitRSVP))

	// Admin routes
	mux.HandleFunc("POST /api/admin/import-guests", middleware.RequireAdmin(adminHandler.ImportGuests))

	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCleanup := make(chan struct{})
	go cleanupExpiredMagicLinks(guestRepo, stopCleanup)

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	close(stopCleanup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}

// cleanupExpiredMagicLinks periodically removes dead link grants so
// expired tokens stop matching guest rows.
func cleanupExpiredMagicLinks(repo *repository.GuestRepository, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			cleared, err := repo.ClearExpiredMagicLinks(ctx, time.Now().UTC())
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("magic link cleanup failed")
				continue
			}
			if cleared > 0 {
				log.Info().Int64("cleared", cleared).Msg("expired magic links cleaned up")
			}
		case <-stop:
			return
		}
	}
}
