package main

import (
	"context"
	"errors"
	"net/http"

	"lifedash/internal/auth"
	"lifedash/internal/backend"
	"lifedash/internal/cli"
	apphttp "lifedash/internal/http"
	"lifedash/internal/log"
	"lifedash/internal/services"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		cli.Fatal(nil, "Failed to load .env", err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(nil, "Configuration validation failed", err)
	}

	logger, err := cli.SetupLogger(cfg, log.ComponentApp)
	if err != nil {
		cli.Fatal(nil, "Failed to set up logging", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	clock := services.RealClock{}
	svc := apphttp.Services{
		Habits:   services.NewHabitService(result.Store, result.Store, result.Publisher, clock),
		Calendar: services.NewCalendarService(result.Store, result.Store),
		Budget:   services.NewBudgetService(result.Store, clock),
	}

	var authenticator *auth.Authenticator
	if cfg.AuthJWTSecret != "" {
		authenticator, err = auth.NewAuthenticator(cfg.AuthJWTSecret)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize authenticator", err)
		}
	} else {
		logger.Warn("AUTH_DEV_MODE enabled, trusting " + apphttp.HeaderUserID + " header")
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, result.Store, apphttp.Options{
		Logger:             logger,
		Auth:               authenticator,
		DevMode:            cfg.AuthDevMode,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
	})
	srv.MaxHeaderBytes = 1 << 16

	runCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting lifedash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", result.Publisher != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}
