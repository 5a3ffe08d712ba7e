// File: internal/services/transport/relay_provider.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/iyunix/go-loanform/internal/domain"
)

// ChallengeParam is the template parameter carrying the challenge token.
const ChallengeParam = "g-recaptcha-response"

// RelayProvider posts submissions to an EmailJS-compatible send endpoint.
type RelayProvider struct {
	config *Config
	client *http.Client
}

func NewRelayProvider(config *Config) *RelayProvider {
	return &RelayProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type relayRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func (p *RelayProvider) Send(ctx context.Context, sub domain.Submission) error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	params := make(map[string]string, len(sub.Fields)+len(sub.Attachments)+2)
	for name, value := range sub.Fields {
		params[name] = value
	}
	for _, att := range sub.Attachments {
		params[att.Field] = att.FileName
	}
	params["form_id"] = sub.FormID
	params[ChallengeParam] = sub.ChallengeToken

	return p.sendRequest(ctx, relayRequest{
		ServiceID:      p.config.ServiceID,
		TemplateID:     p.config.TemplateID,
		UserID:         p.config.PublicKey,
		AccessToken:    p.config.AccessToken,
		TemplateParams: params,
	})
}

func (p *RelayProvider) sendRequest(ctx context.Context, payload relayRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Type: ErrTypeValidation, Message: "invalid payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIURL, bytes.NewBuffer(body))
	if err != nil {
		return &TransportError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &TransportError{Type: ErrTypeNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	return p.handleResponse(resp)
}

func (p *RelayProvider) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusTooManyRequests {
		return &TransportError{
			Type:    ErrTypeRateLimit,
			Code:    resp.StatusCode,
			Message: "rate limit exceeded",
		}
	}

	return &TransportError{
		Type:    ErrTypeProvider,
		Code:    resp.StatusCode,
		Message: string(responseBody),
	}
}

func (p *RelayProvider) HealthCheck(ctx context.Context) error {
	return p.config.Validate()
}
