package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/paydesk/internal/common"
)

// ErrNotConfigured marks an optional dependency that is switched off. Ready
// reports it as "disabled" without failing.
var ErrNotConfigured = errors.New("not configured")

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness flag, e.g. while the server drains on shutdown.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingFrappe(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker       Checker
	FrappeTimeout time.Duration
	RedisTimeout  time.Duration
	// Circuit, when set, reports the Frappe breaker state alongside the probes.
	Circuit func() string
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	status := map[string]string{
		"frappe": probeStatus(h.Checker.PingFrappe(ctx, orDefault(h.FrappeTimeout, 1500*time.Millisecond))),
		"redis":  probeStatus(h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond))),
	}
	code := http.StatusOK
	for _, s := range status {
		if s != "ok" && s != "disabled" {
			code = http.StatusServiceUnavailable
		}
	}
	if h.Circuit != nil {
		status["frappe_circuit"] = h.Circuit()
	}
	common.JSON(w, code, status)
}

func probeStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConfigured):
		return "disabled"
	default:
		return err.Error()
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Pinger is anything that can check a remote site is answering.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probes is the production Checker. Redis may be nil when the deployment runs
// without it.
type Probes struct {
	Frappe Pinger
	Redis  *redis.Client
}

// PingFrappe implements Checker.
func (p Probes) PingFrappe(ctx context.Context, timeout time.Duration) error {
	if p.Frappe == nil {
		return errors.New("frappe client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Frappe.Ping(ctx)
}

// PingRedis implements Checker.
func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}
