package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/dataportal/internal/gate"
	"github.com/florianilch/dataportal/internal/gateway"
	"github.com/florianilch/dataportal/internal/observability"
	"github.com/florianilch/dataportal/internal/retryguard"
	"github.com/florianilch/dataportal/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the different storage types supported for the cached token.
type TokenStorageType string

const (
	TokenStorageTypeMemory  TokenStorageType = "memory"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// keyringServicePrefix is combined with the API origin to name the keyring entry.
const keyringServicePrefix = "dataportal-token:"

// Default configuration values
const (
	DefaultConfigLogFormat         = LogFormatText
	DefaultConfigTelemetryExporter = observability.ExporterNone
	DefaultConfigServerHost        = "127.0.0.1"
	DefaultConfigServerPort        = 4010
	DefaultConfigShutdownTimeout   = 5 * time.Second
	DefaultConfigAPIBaseURL        = "http://localhost:8787/api"
	DefaultConfigAuthBaseURL       = "http://localhost:8787/api/auth"
	DefaultConfigAuthStorage       = TokenStorageTypeFile
	DefaultConfigRetryMaxAttempts  = retryguard.DefaultMaxAttempts
	DefaultConfigRetryCooldown     = retryguard.DefaultCooldown
	DefaultConfigPollInterval      = gateway.DefaultPollInterval
)

// TelemetryConfig selects log export.
type TelemetryConfig struct {
	Exporter observability.Exporter `json:"exporter" validate:"oneof=none stdout otlphttp otlpgrpc"`
}

// ServerConfig holds gateway listener configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// APIConfig holds data API configuration.
type APIConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
}

// AuthConfig describes the auth service and where the bearer token is cached.
type AuthConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`

	Storage TokenStorageType `json:"storage" validate:"required,oneof=memory file env keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to token file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// RetryConfig bounds repeated failing fetches.
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts" validate:"gte=1"`
	Cooldown    time.Duration `json:"cooldown" validate:"gt=0"`
}

// RoutesConfig holds the console routes and redirect targets.
type RoutesConfig struct {
	Login     string `json:"login" validate:"startswith=/"`
	Dashboard string `json:"dashboard" validate:"startswith=/"`
	GuestHome string `json:"guest_home" validate:"startswith=/"`
	Admin     string `json:"admin" validate:"startswith=/"`
}

// Paths converts the routes for guard evaluation.
func (r RoutesConfig) Paths() gate.Paths {
	return gate.Paths{Login: r.Login, Dashboard: r.Dashboard, GuestHome: r.GuestHome}
}

// SubscriptionConfig controls subscription polling.
type SubscriptionConfig struct {
	PollInterval time.Duration `json:"poll_interval" validate:"gt=0"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel     slog.Level         `json:"log_level"`
	LogFormat    LogFormat          `json:"log_format" validate:"oneof=text json"`
	Telemetry    TelemetryConfig    `json:"telemetry"`
	Server       ServerConfig       `json:"server"`
	Shutdown     ShutdownConfig     `json:"shutdown"`
	API          APIConfig          `json:"api"`
	Auth         AuthConfig         `json:"auth"`
	Retry        RetryConfig        `json:"retry"`
	Routes       RoutesConfig       `json:"routes"`
	Subscription SubscriptionConfig `json:"subscription"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = DefaultConfigTelemetryExporter
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.Auth.BaseURL == "" {
		c.Auth.BaseURL = DefaultConfigAuthBaseURL
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultConfigRetryMaxAttempts
	}
	if c.Retry.Cooldown == 0 {
		c.Retry.Cooldown = DefaultConfigRetryCooldown
	}
	if c.Routes.Login == "" {
		c.Routes.Login = gateway.DefaultPaths.Login
	}
	if c.Routes.Dashboard == "" {
		c.Routes.Dashboard = gateway.DefaultPaths.Dashboard
	}
	if c.Routes.GuestHome == "" {
		c.Routes.GuestHome = c.Routes.Dashboard
	}
	if c.Routes.Admin == "" {
		c.Routes.Admin = gateway.DefaultAdminPath
	}
	if c.Subscription.PollInterval == 0 {
		c.Subscription.PollInterval = DefaultConfigPollInterval
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			origin, err := tokenstore.Origin(c.API.BaseURL)
			if err != nil {
				return fmt.Errorf("auth.file required (origin detection failed: %w)", err)
			}
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "dataportal", "tokens", tokenstore.OriginFileName(origin))
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeEnv, TokenStorageTypeMemory:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// The token cache is shared, so both services must live on one origin
	apiOrigin, err := tokenstore.Origin(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	authOrigin, err := tokenstore.Origin(c.Auth.BaseURL)
	if err != nil {
		return fmt.Errorf("auth.base_url: %w", err)
	}
	if apiOrigin != authOrigin {
		return fmt.Errorf("api.base_url and auth.base_url must share an origin (%s != %s)", apiOrigin, authOrigin)
	}

	if err := gateway.CheckRoutes(c.Routes.Paths(), c.Routes.Admin); err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}

// NewTokenStore creates the token cache described by the auth configuration,
// scoped to the API origin.
func (c *Config) NewTokenStore() (tokenstore.TokenStore, error) {
	switch c.Auth.Storage {
	case TokenStorageTypeMemory:
		return tokenstore.NewMemoryStore(), nil
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(c.Auth.File)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(c.Auth.EnvKey)
	case TokenStorageTypeKeyring:
		origin, err := tokenstore.Origin(c.API.BaseURL)
		if err != nil {
			return nil, err
		}
		return tokenstore.NewKeyringStore(keyringServicePrefix+origin, c.Auth.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Auth.Storage)
	}
}
