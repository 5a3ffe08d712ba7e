// File: internal/services/transport/config.go
package transport

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the relay credentials and delivery behaviour.
type Config struct {
	APIURL      string
	ServiceID   string
	TemplateID  string
	PublicKey   string
	AccessToken string
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// Configured reports whether any relay setting is present.
func (c *Config) Configured() bool {
	return c.APIURL != "" || c.ServiceID != "" || c.TemplateID != "" || c.PublicKey != ""
}

func (c *Config) Validate() error {
	var missing []string
	if c.APIURL == "" {
		missing = append(missing, "RELAY_API_URL")
	}
	if c.ServiceID == "" {
		missing = append(missing, "RELAY_SERVICE_ID")
	}
	if c.TemplateID == "" {
		missing = append(missing, "RELAY_TEMPLATE_ID")
	}
	if c.PublicKey == "" {
		missing = append(missing, "RELAY_PUBLIC_KEY")
	}
	if len(missing) > 0 {
		return &TransportError{Type: ErrTypeConfig, Message: fmt.Sprintf("%s required", strings.Join(missing, ", "))}
	}
	return nil
}
