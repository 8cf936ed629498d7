package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	FrappeURL       string
	FrappeAPIKey    string
	FrappeAPISecret string
	FrappeCSRFToken string
	FrappeTimeout   time.Duration

	RedisURL       string
	WebhookLockTTL time.Duration

	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration

	RedirectRateLimit string
	BodyLimitBytes    int64

	HealthFrappeTimeout time.Duration
	HealthRedisTimeout  time.Duration

	DeskAPIToken  string
	SecureHeaders bool
	EnableHSTS    bool

	PprofEnabled bool
	PprofUser    string
	PprofPass    string

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	TracingSampling  float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		FrappeURL:       strings.TrimRight(strings.TrimSpace(k.String("FRAPPE_URL")), "/"),
		FrappeAPIKey:    strings.TrimSpace(k.String("FRAPPE_API_KEY")),
		FrappeAPISecret: strings.TrimSpace(k.String("FRAPPE_API_SECRET")),
		FrappeCSRFToken: strings.TrimSpace(k.String("FRAPPE_CSRF_TOKEN")),
		FrappeTimeout:   parseDuration(k.String("FRAPPE_TIMEOUT"), "15s"),

		RedisURL:       strings.TrimSpace(k.String("REDIS_URL")),
		WebhookLockTTL: parseDuration(k.String("WEBHOOK_LOCK_TTL"), "30s"),

		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 5),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		RedirectRateLimit: valueOrDefault(k.String("REDIRECT_RATE_LIMIT"), "30-M"),
		BodyLimitBytes:    int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),

		HealthFrappeTimeout: time.Duration(parseInt(k.String("HEALTH_READY_FRAPPE_TIMEOUT_MS"), 1500)) * time.Millisecond,
		HealthRedisTimeout:  time.Duration(parseInt(k.String("HEALTH_READY_REDIS_TIMEOUT_MS"), 300)) * time.Millisecond,

		DeskAPIToken:  strings.TrimSpace(k.String("DESK_API_TOKEN")),
		SecureHeaders: parseBool(k.String("SECURE_HEADERS_ENABLE"), true),
		EnableHSTS:    parseBool(k.String("SECURE_HSTS_ENABLE"), false),

		PprofEnabled: parseBool(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:    strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:    strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "paydesk"),
		MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
	}

	if cfg.FrappeURL == "" {
		return nil, errors.New("FRAPPE_URL is required")
	}
	u, err := url.Parse(cfg.FrappeURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("FRAPPE_URL must be an absolute http(s) URL, got %q", cfg.FrappeURL)
	}
	if (cfg.FrappeAPIKey == "") != (cfg.FrappeAPISecret == "") {
		return nil, errors.New("FRAPPE_API_KEY and FRAPPE_API_SECRET must be set together")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// APIToken returns the Frappe token credential, or "" when none is configured.
func (c *Config) APIToken() string {
	if c.FrappeAPIKey == "" {
		return ""
	}
	return c.FrappeAPIKey + ":" + c.FrappeAPISecret
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
