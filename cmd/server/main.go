package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"agentdesk/internal/config"
	"agentdesk/internal/db"
	"agentdesk/internal/handler"
	"agentdesk/internal/logging"
	"agentdesk/internal/repository"
	"agentdesk/internal/room"
	"agentdesk/internal/router"
	"agentdesk/internal/service"
	"agentdesk/internal/summary"
	"agentdesk/internal/timer"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, !cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	migrations, err := db.Migrations(cfg.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("load migrations")
	}
	if err := db.RunMigrations(database, migrations); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	accountRepo := repository.NewAccountRepository(database)
	userRepo := repository.NewUserRepository(database)
	intervalRepo := repository.NewIntervalRepository(database)

	authService := service.NewAuthService(accountRepo, cfg.JWTSecret, cfg.TokenTTL)
	dashboardService := service.NewDashboardService(
		userRepo,
		timer.NewEngine(intervalRepo),
		summary.NewEngine(userRepo, intervalRepo),
		room.NewProvisioner(cfg.RoomDomain),
		cfg.AdminEmails,
	)

	engine := router.New(authService, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Admin:     handler.NewAdminHandler(dashboardService),
	}, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("agentdesk listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("run server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
