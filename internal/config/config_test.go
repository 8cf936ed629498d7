package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paydesk/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"FRAPPE_URL":        "https://erp.example.com/",
		"FRAPPE_API_KEY":    "",
		"FRAPPE_API_SECRET": "",
		"FRAPPE_TIMEOUT":    "",
		"PORT":              "",
		"REDIS_URL":         "",
	})
	require.NoError(t, err)
	require.Equal(t, "https://erp.example.com", cfg.FrappeURL)
	require.Equal(t, 15*time.Second, cfg.FrappeTimeout)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.APIToken())
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, "30-M", cfg.RedirectRateLimit)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"FRAPPE_URL":            "http://localhost:8000",
		"FRAPPE_API_KEY":        "key",
		"FRAPPE_API_SECRET":     "secret",
		"FRAPPE_TIMEOUT":        "2s",
		"PORT":                  ":9090",
		"CIRCUIT_FAILURE_RATIO": "0.25",
		"CORS_ALLOWED_ORIGINS":  "https://a.example, ,https://b.example",
	})
	require.NoError(t, err)
	require.Equal(t, "key:secret", cfg.APIToken())
	require.Equal(t, 2*time.Second, cfg.FrappeTimeout)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 0.25, cfg.CircuitFailureRatio)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadRequiresFrappeURL(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"FRAPPE_URL": ""})
	require.ErrorContains(t, err, "FRAPPE_URL is required")

	_, err = config.LoadForTests(map[string]string{"FRAPPE_URL": "erp.example.com"})
	require.ErrorContains(t, err, "absolute http(s) URL")
}

func TestLoadRejectsHalfCredentials(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"FRAPPE_URL":        "https://erp.example.com",
		"FRAPPE_API_KEY":    "key",
		"FRAPPE_API_SECRET": "",
	})
	require.Error(t, err)
}

func TestLoadServerHardening(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"FRAPPE_URL":                    "https://erp.example.com",
		"DESK_API_TOKEN":                " desk-token ",
		"SECURE_HEADERS_ENABLE":         "false",
		"OBS_ENABLE_PPROF":              "true",
		"SECURE_PPROF_BASIC_AUTH_USER":  "ops",
		"HEALTH_READY_REDIS_TIMEOUT_MS": "150",
	})
	require.NoError(t, err)
	require.Equal(t, "desk-token", cfg.DeskAPIToken)
	require.False(t, cfg.SecureHeaders)
	require.True(t, cfg.PprofEnabled)
	require.Equal(t, "ops", cfg.PprofUser)
	require.Equal(t, 150*time.Millisecond, cfg.HealthRedisTimeout)
	require.Equal(t, 1500*time.Millisecond, cfg.HealthFrappeTimeout)
}
