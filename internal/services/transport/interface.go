// File: internal/services/transport/interface.go
package transport

import (
	"context"

	"github.com/iyunix/go-loanform/internal/domain"
)

// ProviderStatus represents the health status of the relay
type ProviderStatus struct {
	IsHealthy bool   `json:"healthy"`
	Message   string `json:"message"`
}

// Provider delivers one submission to the relay, without retries.
type Provider interface {
	Send(ctx context.Context, sub domain.Submission) error
	HealthCheck(ctx context.Context) error
}

// Transport is what the form calls once validateAll has passed.
type Transport interface {
	Submit(ctx context.Context, sub domain.Submission) error
}
