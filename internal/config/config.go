// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	DatabasePath    string
	SessionSecret   string
	OTPLength       int
	OTPTTL          time.Duration
	OTPMaxAttempts  int
	DraftKey        string
	Currency        string
	RulesFile       string
	FormIdleTimeout time.Duration
	Relay           RelayConfig
	Environment     string
}

// RelayConfig locates the email relay that receives submissions.
type RelayConfig struct {
	APIURL      string
	ServiceID   string
	TemplateID  string
	PublicKey   string
	AccessToken string
	Timeout     time.Duration
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// Load reads configuration from environment variables or .env file.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "loanform.db"),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		OTPLength:       getEnvAsInt("OTP_LENGTH", 6),
		OTPTTL:          getEnvAsDuration("OTP_TTL", 0),
		OTPMaxAttempts:  getEnvAsInt("OTP_MAX_ATTEMPTS", 0),
		DraftKey:        getEnv("DRAFT_KEY", "loanFormData"),
		Currency:        getEnv("CURRENCY", "VNĐ"),
		RulesFile:       getEnv("RULES_FILE", ""),
		FormIdleTimeout: getEnvAsDuration("FORM_IDLE_TIMEOUT", 2*time.Hour),
		Relay: RelayConfig{
			APIURL:      getEnv("RELAY_API_URL", ""),
			ServiceID:   getEnv("RELAY_SERVICE_ID", ""),
			TemplateID:  getEnv("RELAY_TEMPLATE_ID", ""),
			PublicKey:   getEnv("RELAY_PUBLIC_KEY", ""),
			AccessToken: getEnv("RELAY_ACCESS_TOKEN", ""),
			Timeout:     getEnvAsDuration("RELAY_TIMEOUT", 10*time.Second),
		},
		Environment: env,
	}

	if cfg.OTPLength < 6 {
		log.Printf("Warning: OTP_LENGTH %d is below the minimum; using 6.", cfg.OTPLength)
		cfg.OTPLength = 6
	}

	// Validation for production environments
	if cfg.IsProduction() {
		missing := []string{}
		if cfg.SessionSecret == "" {
			missing = append(missing, "SESSION_SECRET")
		}
		if cfg.Relay.APIURL == "" {
			missing = append(missing, "RELAY_API_URL")
		}
		if cfg.Relay.ServiceID == "" {
			missing = append(missing, "RELAY_SERVICE_ID")
		}
		if cfg.Relay.TemplateID == "" {
			missing = append(missing, "RELAY_TEMPLATE_ID")
		}
		if cfg.Relay.PublicKey == "" {
			missing = append(missing, "RELAY_PUBLIC_KEY")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable, or the default when
// it is unset or empty.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration accepts Go durations ("90s", "5m") or plain seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
	return defaultValue
}
