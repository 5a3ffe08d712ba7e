// File: internal/services/transport/service.go
package transport

import (
	"context"
	"sync"

	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/services"
)

// Service wraps a Provider with retries and records the last outcome.
type Service struct {
	provider Provider
	retry    *RetryConfig
	logger   services.Logger

	mu     sync.RWMutex
	status ProviderStatus
}

func NewService(provider Provider, retry *RetryConfig, logger services.Logger) *Service {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &Service{
		provider: provider,
		retry:    retry,
		logger:   logger,
		status:   ProviderStatus{IsHealthy: true, Message: "no submissions yet"},
	}
}

// NewServiceFromConfig builds a relay-backed service from cfg.
func NewServiceFromConfig(cfg *Config, logger services.Logger) *Service {
	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		retry.Delay = cfg.RetryDelay
	}
	return NewService(NewRelayProvider(cfg), retry, logger)
}

func (s *Service) Submit(ctx context.Context, sub domain.Submission) error {
	err := RetryWithBackoff(ctx, s.retry, func(ctx context.Context) error {
		return s.provider.Send(ctx, sub)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = ProviderStatus{IsHealthy: false, Message: err.Error()}
		s.logger.Error("submission delivery failed", "form_id", sub.FormID, "error", err)
		return err
	}
	s.status = ProviderStatus{IsHealthy: true, Message: "ok"}
	s.logger.Info("submission delivered", "form_id", sub.FormID, "fields", len(sub.Fields), "attachments", len(sub.Attachments))
	return nil
}

// HealthCheck reports whether the relay can be used: the provider must be
// usable and the last delivery must not have failed.
func (s *Service) HealthCheck(ctx context.Context) ProviderStatus {
	if err := s.provider.HealthCheck(ctx); err != nil {
		return ProviderStatus{IsHealthy: false, Message: err.Error()}
	}
	return s.GetProviderStatus()
}

func (s *Service) GetProviderStatus() ProviderStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LogTransport accepts every submission and only logs it. Used when no relay
// is configured outside production.
type LogTransport struct {
	Logger services.Logger
}

func (t LogTransport) Submit(_ context.Context, sub domain.Submission) error {
	t.Logger.Info("submission accepted without relay",
		"form_id", sub.FormID,
		"phone", services.MaskPhone(sub.Fields[domain.FieldPhone]),
		"attachments", len(sub.Attachments),
	)
	return nil
}
