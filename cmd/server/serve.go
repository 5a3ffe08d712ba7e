// File: cmd/server/serve.go
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/iyunix/go-loanform/internal/config"
	"github.com/iyunix/go-loanform/internal/handlers"
	"github.com/iyunix/go-loanform/internal/middleware"
	"github.com/iyunix/go-loanform/internal/ratelimit"
	draftrepo "github.com/iyunix/go-loanform/internal/repository/draft"
	"github.com/iyunix/go-loanform/internal/rules"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/services/form"
	"github.com/iyunix/go-loanform/internal/services/loancalc"
	"github.com/iyunix/go-loanform/internal/services/otp"
	"github.com/iyunix/go-loanform/internal/services/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func openDB(path string) (*draftrepo.GormStorageRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	repo := draftrepo.NewGormStorageRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return repo, nil
}

func loadRules(cfg *config.Config) (*rules.RuleSet, error) {
	if cfg.RulesFile == "" {
		return rules.Default(), nil
	}
	return rules.LoadFile(cfg.RulesFile)
}

// buildTransport returns the submission transport and, when a relay backs it,
// the relay health source.
func buildTransport(cfg *config.Config, logger services.Logger) (transport.Transport, handlers.RelayHealth) {
	relay := &transport.Config{
		APIURL:      cfg.Relay.APIURL,
		ServiceID:   cfg.Relay.ServiceID,
		TemplateID:  cfg.Relay.TemplateID,
		PublicKey:   cfg.Relay.PublicKey,
		AccessToken: cfg.Relay.AccessToken,
		Timeout:     cfg.Relay.Timeout,
	}
	if !relay.Configured() && !cfg.IsProduction() {
		logger.Warn("no relay configured; submissions are only logged")
		return transport.LogTransport{Logger: logger}, nil
	}
	svc := transport.NewServiceFromConfig(relay, logger)
	return svc, svc
}

func sessionSecret(cfg *config.Config, logger services.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	logger.Warn("SESSION_SECRET not set; using a random secret, sessions end with the process")
	return secret, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := services.NewLogger("loanform")
	if z, ok := logger.(*services.ZapLogger); ok {
		defer func() { _ = z.Sync() }()
	}

	rs, err := loadRules(cfg)
	if err != nil {
		return err
	}
	repo, err := openDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		return err
	}

	// --- Services ---
	calc := loancalc.New(cfg.Currency, rs.Text(rules.MsgCalcLabel))
	submitter, relayHealth := buildTransport(cfg, logger)
	otpPolicy := otp.Policy{CodeLength: cfg.OTPLength, TTL: cfg.OTPTTL, MaxAttempts: cfg.OTPMaxAttempts}

	registry := form.NewRegistry(func(id, owner string) *form.Controller {
		return form.New(id, form.Deps{
			Rules:      rs,
			Drafts:     draftrepo.ForOwner(repo, owner),
			DraftKey:   cfg.DraftKey,
			Transport:  submitter,
			Calculator: calc,
			OTPOptions: []otp.Option{otp.WithPolicy(otpPolicy)},
			Logger:     logger,
		})
	}, cfg.FormIdleTimeout, logger)

	otpRequestLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.OTPRequestConfig())
	defer otpRequestLimiter.Close()
	otpVerifyLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.OTPVerifyConfig())
	defer otpVerifyLimiter.Close()
	submitLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.SubmitConfig())
	defer submitLimiter.Close()

	// --- Router Setup ---
	router := handlers.NewRouter(handlers.RouterDeps{
		Form:       handlers.NewFormHandler(registry, secret, 0, cfg.IsProduction(), logger),
		Calculator: handlers.NewCalculatorHandler(calc),
		Log:        handlers.NewLogHandler(logger),
		Health:     handlers.NewHealthHandler(relayHealth),
		Session:    middleware.FormSession(registry, secret, logger),
		Limiters: handlers.Limiters{
			OTPRequest: otpRequestLimiter,
			OTPVerify:  otpVerifyLimiter,
			Submit:     submitLimiter,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go registry.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "database", cfg.DatabasePath, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server startup failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
