package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"tleenotes/docs"
	"tleenotes/internal/auth"
	"tleenotes/internal/cache"
	"tleenotes/internal/config"
	"tleenotes/internal/db"
	"tleenotes/internal/handler"
	"tleenotes/internal/logger"
	"tleenotes/internal/repository"
	"tleenotes/internal/router"
	"tleenotes/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Notes API
// @version 1.0
// @description Note sharing API with identifier upserts, search, pagination and role-gated user management.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDevelopment(),
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	gormDB, err := db.Open(db.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}()
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB=true, dropping all tables")
		if err := db.Reset(ctx, gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(ctx, gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() {
		if err := cacheClient.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}()
	if err := cacheClient.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, continuing without cache")
	}

	noteRepo := repository.NewNoteRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	tokenStore := auth.NewTokenStore(cacheClient)

	noteService := service.NewNoteService(noteRepo, cacheClient, log)
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, log)
	userService := service.NewUserService(userRepo, log)

	e := router.New(cfg, log, prometheus.DefaultRegisterer)
	router.Register(e, router.Handlers{
		Notes: handler.NewNoteHandler(noteService),
		Auth:  handler.NewAuthHandler(authService),
		Users: handler.NewUserHandler(userService),
		Health: handler.NewHealthHandler(
			func(ctx context.Context) error { return db.Ping(ctx, gormDB) },
			cacheClient.Ping,
		),
	}, router.Security{
		JWT:        jwtService,
		Principals: authService,
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = trimScheme(cfg.SwaggerHost)
	}

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("swagger", swaggerURL(cfg)).Msg("http server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func trimScheme(host string) string {
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimPrefix(host, "https://")
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
