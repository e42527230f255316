package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/internal/handlers"
	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/services"
	"github.com/madigan/timely/pkg/cache"
	"github.com/madigan/timely/pkg/config"
	"github.com/madigan/timely/pkg/crypto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/madigan/timely/docs" // Import generated docs
)

// @title           Timely Calendar Dashboard API
// @version         1.0
// @description     Calendar dashboard backend with Google OAuth 2.0 sign-in, Google Calendar
// @description     aggregation, keyword-based event categorization, time-allocation analytics,
// @description     and an important-events widget.
//
// @license.name  MIT
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name timely_session
// @description Opaque session ID issued after Google sign-in
func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("env", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("Starting timely server")

	// Initialize PostgreSQL
	postgresDB, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer postgresDB.Close()

	// Run migrations
	if err := postgresDB.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize Redis
	redisDB, err := database.NewRedisDB(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisDB.Close()

	// Initialize cache and token cipher
	cacheInstance := cache.NewCache(redisDB.Client())
	tokenCipher := crypto.NewTokenCipher(cfg.Crypto.EncryptionKey)

	// Initialize services
	oauthService := services.NewOAuthService(&cfg.OAuth, &cfg.Session, postgresDB, redisDB, cacheInstance, tokenCipher)
	calendarService := services.NewCalendarService(
		postgresDB,
		services.NewGoogleCalendarAPI(),
		services.NewGoogleTokenRefresher(&cfg.OAuth),
		cacheInstance,
		tokenCipher,
	)
	categoryService := services.NewCategoryService(postgresDB)
	importantService := services.NewImportantEventService(postgresDB, calendarService)

	// Initialize handlers
	isProduction := cfg.Server.IsProduction()
	authHandler := handlers.NewAuthHandler(oauthService, postgresDB, isProduction)
	calendarHandler := handlers.NewCalendarHandler(calendarService, categoryService, cfg.Analytics.MaxCategories, cfg.Analytics.TopCategories)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	importantHandler := handlers.NewImportantEventHandler(importantService)
	healthHandler := handlers.NewHealthHandler(postgresDB, redisDB)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisDB, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.WindowDuration)

	// Expired-session sweep, also feeds the active-sessions gauge
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepSessions(sweepCtx, postgresDB, cfg.Session.SweepInterval)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", middleware.MetricsHandler())

	// Swagger API documentation
	r.Get("/api/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/api/docs/doc.json"),
	))

	// OAuth flow endpoints. Logout stays outside SessionAuth so a stale
	// cookie can still be cleared.
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.Limit("auth"))
			r.Get("/google", authHandler.GoogleLogin)
			r.Get("/google/callback", authHandler.GoogleCallback)
		})

		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(postgresDB))
			r.Get("/profile", authHandler.Profile)
		})
	})

	// API routes (require a valid session)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SessionAuth(postgresDB))

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.Post("/", categoryHandler.Create)
			r.Put("/{id}", categoryHandler.Update)
			r.Delete("/{id}", categoryHandler.Delete)
		})

		r.Get("/calendars", calendarHandler.ListCalendars)
		r.Get("/calendars/{id}/events", calendarHandler.ListEvents)
		r.Get("/events", calendarHandler.ListAllEvents)
		r.Get("/analytics", calendarHandler.Analytics)

		r.Route("/important-events", func(r chi.Router) {
			r.Get("/", importantHandler.List)
			r.Get("/settings", importantHandler.GetSettings)
			r.Put("/settings", importantHandler.UpdateSettings)
		})
	})

	// Static SPA bundle
	r.Handle("/*", http.FileServer(http.Dir(cfg.Server.StaticDir)))

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down server...")
	stopSweep()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped gracefully")
}

// sweepSessions periodically deletes expired session rows and refreshes
// the active-sessions gauge. Runs until ctx is cancelled.
func sweepSessions(ctx context.Context, db *database.PostgresDB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := db.DeleteExpiredSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Session sweep failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("Swept expired sessions")
			}

			active, err := db.CountActiveSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Active session count failed")
				continue
			}
			middleware.SetActiveSessions(float64(active))
		}
	}
}
