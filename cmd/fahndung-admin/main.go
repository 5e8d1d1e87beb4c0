package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fahndung/backend/internal/cmd"
	"github.com/fahndung/backend/internal/config"
	"github.com/fahndung/backend/internal/logger"
	"github.com/fahndung/backend/internal/services"
	"github.com/fahndung/backend/internal/supabase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(envOr("LOG_LEVEL", "warn")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	root := cmd.NewRootCmd(newProvisioner)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
		}
		os.Exit(1)
	}
}

func newProvisioner() (cmd.Provisioner, error) {
	cfg, err := config.LoadSupabase()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceRoleKey == "" {
		return nil, errors.New("SUPABASE_SERVICE_ROLE_KEY is required")
	}

	client := supabase.NewClient(supabase.Options{
		URL:            cfg.URL,
		AnonKey:        cfg.AnonKey,
		ServiceRoleKey: cfg.ServiceRoleKey,
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
	}, logger.Logger)

	return services.NewUserService(client, logger.Logger), nil
}

func envOr(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
