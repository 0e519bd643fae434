package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

type Config struct {
	Issuer                 string        // Issuer claim for tokens (default: tenantauth)
	SigningSecret          string        // Optional: primary HMAC secret (ephemeral mode); generated when empty
	PreviousSigningSecrets []string      // Optional: secrets still accepted for verification during a transition
	KeyStorageMode         string        // Key storage mode (ephemeral, persistent) (default: ephemeral)
	KeyGracePeriod         time.Duration // How long a retired key keeps verifying (default: 8h)
	TokenTTL               time.Duration // Access token lifetime (default: 8h)
	MasterKeyPath          string        // Optional: path to master key file encrypting persisted signing keys
	PepperFile             string        // Path to the password pepper (default: ./pepper.key)
	DatabaseFile           string        // Path to SQLite database file (default: ./auth.db)
	BootstrapToken         string        // Optional: if set, required to perform bootstrap
	CredentialKeys         string        // Sealing keys for merchant credentials, "ref:base64,..." (first is primary)

	RateLimitThreshold int           // Requests per identity per window (default: 120)
	RateLimitWindow    time.Duration // Fixed window length (default: 1m)
	RateLimitRedisAddr string        // Optional: Redis address for shared window counters
	TrustedProxies     string        // Optional: proxy CIDRs whose X-Forwarded-For is believed

	AuditPostgresDSN string // Optional: central Postgres audit sink
	AuditBufferSize  int    // Audit buffer capacity (default: 1024)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:                 getEnvOrDefault("AUTH_ISSUER", "tenantauth"),
		SigningSecret:          os.Getenv("AUTH_SIGNING_SECRET"),
		PreviousSigningSecrets: splitList(os.Getenv("AUTH_PREVIOUS_SIGNING_SECRETS")),
		KeyStorageMode:         getEnvOrDefault("AUTH_KEY_STORAGE_MODE", KeyStorageEphemeral),
		KeyGracePeriod:         getEnvDurationOrDefault("AUTH_KEY_GRACE_PERIOD", jwtx.DefaultAccessTokenTTL),
		TokenTTL:               getEnvDurationOrDefault("AUTH_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		MasterKeyPath:          getEnvOrDefault("AUTH_MASTER_KEY_PATH", "master.key"),
		PepperFile:             getEnvOrDefault("AUTH_PEPPER_FILE", "pepper.key"),
		DatabaseFile:           getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		BootstrapToken:         os.Getenv("AUTH_BOOTSTRAP_TOKEN"),
		CredentialKeys:         os.Getenv("CREDENTIAL_ENCRYPTION_KEYS"),

		RateLimitThreshold: getEnvIntOrDefault("RATE_LIMIT_THRESHOLD", 120),
		RateLimitWindow:    getEnvDurationOrDefault("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitRedisAddr: os.Getenv("RATE_LIMIT_REDIS_ADDR"),
		TrustedProxies:     os.Getenv("TRUSTED_PROXIES"),

		AuditPostgresDSN: os.Getenv("AUDIT_POSTGRES_DSN"),
		AuditBufferSize:  getEnvIntOrDefault("AUDIT_BUFFER_SIZE", 1024),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER must not be empty"))
	}
	switch c.KeyStorageMode {
	case KeyStorageEphemeral, KeyStoragePersistent:
	default:
		errs = append(errs, fmt.Errorf("AUTH_KEY_STORAGE_MODE %q: want %s or %s",
			c.KeyStorageMode, KeyStorageEphemeral, KeyStoragePersistent))
	}
	if c.SigningSecret != "" && len(c.SigningSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_SIGNING_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	if c.SigningSecret != "" && c.KeyStorageMode == KeyStoragePersistent {
		errs = append(errs, errors.New("AUTH_SIGNING_SECRET cannot be combined with persistent key storage"))
	}
	if len(c.PreviousSigningSecrets) > 0 && c.SigningSecret == "" {
		errs = append(errs, errors.New("AUTH_PREVIOUS_SIGNING_SECRETS requires AUTH_SIGNING_SECRET"))
	}
	for i, s := range c.PreviousSigningSecrets {
		if len(s) < jwtx.MinSecretLength {
			errs = append(errs, fmt.Errorf("AUTH_PREVIOUS_SIGNING_SECRETS entry %d must be at least %d bytes", i+1, jwtx.MinSecretLength))
		}
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}
	if c.KeyGracePeriod < 0 {
		errs = append(errs, errors.New("AUTH_KEY_GRACE_PERIOD must not be negative"))
	}
	if c.IsProduction() && c.CredentialKeys == "" {
		errs = append(errs, errors.New("CREDENTIAL_ENCRYPTION_KEYS is required in production"))
	}
	if c.RateLimitThreshold <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_THRESHOLD must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if c.AuditBufferSize <= 0 {
		errs = append(errs, errors.New("AUDIT_BUFFER_SIZE must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

// splitList splits a comma separated value, dropping empty items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
