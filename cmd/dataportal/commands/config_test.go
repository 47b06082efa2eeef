package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/dataportal/internal/app"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", nil, environ("DATAPORTAL_AUTH__STORAGE=memory"))
	require.NoError(t, err)

	assert.Equal(t, app.TokenStorageTypeMemory, cfg.Auth.Storage)
	assert.Equal(t, app.DefaultConfigAPIBaseURL, cfg.API.BaseURL)
	assert.Equal(t, app.DefaultConfigAuthBaseURL, cfg.Auth.BaseURL)
	assert.Equal(t, uint16(app.DefaultConfigServerPort), cfg.Server.Port)
	assert.Equal(t, app.DefaultConfigRetryMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, app.DefaultConfigRetryCooldown, cfg.Retry.Cooldown)
	assert.Equal(t, app.DefaultConfigPollInterval, cfg.Subscription.PollInterval)
	assert.Equal(t, "/console/login", cfg.Routes.Login)
	assert.Equal(t, cfg.Routes.Dashboard, cfg.Routes.GuestHome)
}

func TestLoadConfigEnvironment(t *testing.T) {
	cfg, err := loadConfig("", nil, environ(
		"DATAPORTAL_LOG_LEVEL=debug",
		"DATAPORTAL_SERVER__PORT=9000",
		"DATAPORTAL_AUTH__STORAGE=env",
		"DATAPORTAL_AUTH__ENV_KEY=PORTAL_TOKEN",
		"DATAPORTAL_RETRY__COOLDOWN=1m",
		"DATAPORTAL_RETRY__MAX_ATTEMPTS=5",
		"UNRELATED=1",
	))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, uint16(9000), cfg.Server.Port)
	assert.Equal(t, app.TokenStorageTypeEnv, cfg.Auth.Storage)
	assert.Equal(t, "PORTAL_TOKEN", cfg.Auth.EnvKey)
	assert.Equal(t, time.Minute, cfg.Retry.Cooldown)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoadConfigFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
log_format = "json"

[api]
base_url = "https://portal.example.com/api"

[auth]
base_url = "https://portal.example.com/api/auth"
storage = "memory"

[routes]
login = "/signin"
dashboard = "/home"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := loadConfig(path, nil, environ("DATAPORTAL_ROUTES__DASHBOARD=/overview"))
	require.NoError(t, err)

	assert.Equal(t, app.LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, "https://portal.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "/signin", cfg.Routes.Login)
	assert.Equal(t, "/overview", cfg.Routes.Dashboard)
	assert.Equal(t, "/overview", cfg.Routes.GuestHome)
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	var (
		cfg     *app.Config
		loadErr error
	)
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api--base-url"},
			&cli.IntFlag{Name: "server--port"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, loadErr = loadConfig("", cmd, environ(
				"DATAPORTAL_AUTH__STORAGE=memory",
				"DATAPORTAL_API__BASE_URL=http://ignored.test/api",
				"DATAPORTAL_AUTH__BASE_URL=http://portal.test/auth",
			))
			return nil
		},
	}

	err := cmd.Run(context.Background(), []string{"test", "--api--base-url", "http://portal.test/v1", "--server--port", "8123"})
	require.NoError(t, err)
	require.NoError(t, loadErr)

	assert.Equal(t, "http://portal.test/v1", cfg.API.BaseURL)
	assert.Equal(t, uint16(8123), cfg.Server.Port)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  []string
	}{
		{
			name: "unknown storage",
			env:  []string{"DATAPORTAL_AUTH__STORAGE=bogus"},
		},
		{
			name: "env storage without key",
			env:  []string{"DATAPORTAL_AUTH__STORAGE=env"},
		},
		{
			name: "unknown exporter",
			env:  []string{"DATAPORTAL_AUTH__STORAGE=memory", "DATAPORTAL_TELEMETRY__EXPORTER=zipkin"},
		},
		{
			name: "origins differ",
			env: []string{
				"DATAPORTAL_AUTH__STORAGE=memory",
				"DATAPORTAL_API__BASE_URL=https://a.example.com/api",
				"DATAPORTAL_AUTH__BASE_URL=https://b.example.com/auth",
			},
		},
		{
			name: "login equals dashboard",
			env: []string{
				"DATAPORTAL_AUTH__STORAGE=memory",
				"DATAPORTAL_ROUTES__LOGIN=/home",
				"DATAPORTAL_ROUTES__DASHBOARD=/home",
			},
		},
		{
			name: "login collides with admin",
			env: []string{
				"DATAPORTAL_AUTH__STORAGE=memory",
				"DATAPORTAL_ROUTES__LOGIN=/console/admin",
			},
		},
		{
			name: "guest home loops to login",
			env: []string{
				"DATAPORTAL_AUTH__STORAGE=memory",
				"DATAPORTAL_ROUTES__GUEST_HOME=/console/login",
			},
		},
		{
			name: "relative route",
			env:  []string{"DATAPORTAL_AUTH__STORAGE=memory", "DATAPORTAL_ROUTES__LOGIN=login"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig("", nil, environ(tt.env...))
			assert.Error(t, err)
		})
	}
}

func TestDefaultTokenFileIsScopedByOrigin(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("", nil, environ(
		"DATAPORTAL_API__BASE_URL=https://Portal.Example.com:8443/api",
		"DATAPORTAL_AUTH__BASE_URL=https://portal.example.com:8443/auth",
	))
	require.NoError(t, err)

	assert.Equal(t, app.TokenStorageTypeFile, cfg.Auth.Storage)
	assert.Equal(t, "https_portal.example.com_8443", filepath.Base(cfg.Auth.File))
	assert.Equal(t, "tokens", filepath.Base(filepath.Dir(cfg.Auth.File)))
}
