package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/fahndung/backend/docs"
	"github.com/fahndung/backend/internal/config"
	"github.com/fahndung/backend/internal/handlers"
	"github.com/fahndung/backend/internal/logger"
	"github.com/fahndung/backend/internal/middlewares"
	"github.com/fahndung/backend/internal/repositories"
	"github.com/fahndung/backend/internal/services"
	"github.com/fahndung/backend/internal/session"
	"github.com/fahndung/backend/internal/storage"
	"github.com/fahndung/backend/internal/supabase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Fahndung API
// @version 1.0
// @description API for public investigations, staff sessions and user administration

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Fahndung")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Identity and profile backend
	client := supabase.NewClient(supabase.Options{
		URL:            cfg.Supabase.URL,
		AnonKey:        cfg.Supabase.AnonKey,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		JWTSecret:      cfg.Supabase.JWTSecret,
		RequestTimeout: cfg.Supabase.RequestTimeout,
	}, logger.Logger)
	if cfg.Supabase.ServiceRoleKey == "" {
		logger.Logger.Warn("SUPABASE_SERVICE_ROLE_KEY not set, user administration is disabled")
	}

	// Every visitor gets its own auth client so tokens never leak between visitors
	visitors := session.NewManager(func() session.Backend {
		return client.NewAuthClient()
	}, session.ManagerConfig{
		Store: session.StoreConfig{
			SessionTimeout: cfg.Session.Timeout,
			MaxRetries:     cfg.Session.MaxRetries,
			ProfileMaxAge:  cfg.Session.ProfileMaxAge,
		},
		Poller: session.PollerConfig{
			PollInterval:    cfg.Session.PollInterval,
			RefreshInterval: cfg.Session.RefreshInterval,
		},
		Triage: session.TriageConfig{
			MaxErrorCount: cfg.Session.MaxErrorCount,
			LoginPath:     "/login",
		},
		VisitorTTL:   cfg.Session.VisitorTTL,
		AnonymousTTL: cfg.Session.AnonymousTTL,
		MaxVisitors:  cfg.Session.MaxVisitors,
	}, logger.Logger)
	visitors.Start()
	defer visitors.Close()

	// Initialize repositories
	investigationRepo := repositories.NewInvestigationRepository(db, logger.Logger)
	imageRepo := repositories.NewImageRepository(db, logger.Logger)
	mediaStorage := storage.NewLocalStorage(cfg.Media.BasePath)

	// Initialize services
	investigationService := services.NewInvestigationService(investigationRepo, imageRepo, mediaStorage, cfg.Media.BaseURL, logger.Logger)
	userService := services.NewUserService(client, logger.Logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(client, logger.Logger)
	investigationHandler := handlers.NewInvestigationHandler(investigationService, logger.Logger)
	adminHandler := handlers.NewAdminHandler(userService, logger.Logger)
	pageHandler := handlers.NewPageHandler(userService, logger.Logger)
	healthHandler := handlers.NewHealthHandler(db, visitors, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middlewares.RequestIDMiddleware)
	r.Use(middlewares.LoggerMiddleware(logger.Logger))
	r.Use(middlewares.RecoveryMiddleware(logger.Logger))
	r.Use(middlewares.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimit, time.Minute))
	r.Use(middlewares.RequestSizeLimitMiddleware(10 * 1024 * 1024)) // 10MB

	// Probes and metrics stay outside the visitor registry
	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	r.Group(func(r chi.Router) {
		r.Use(middlewares.VisitorMiddleware(visitors, cfg.Session.SecureCookies))

		// Server-rendered pages
		pageHandler.RegisterRoutes(r)
		// Investigation images
		investigationHandler.RegisterMediaRoutes(r)

		// Scope router to /api/v1
		r.Route("/api/v1", func(r chi.Router) {
			// Register auth routes
			authHandler.RegisterRoutes(r)
			// Register profile routes for any signed-in user
			authHandler.RegisterProfileRoutes(r, middlewares.RequireRole())
			// Register investigation routes, write access is checked per route
			investigationHandler.RegisterRoutes(r)
			// Register admin routes, admin role is checked inside
			adminHandler.RegisterRoutes(r)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "fahndung_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Running from cmd/fahndung
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
