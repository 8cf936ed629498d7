package app

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/paydesk/internal/checkout"
	"github.com/noah-isme/paydesk/internal/health"
	"github.com/noah-isme/paydesk/internal/obs"
	"github.com/noah-isme/paydesk/internal/ratelimit"
	"github.com/noah-isme/paydesk/internal/security"
	"github.com/noah-isme/paydesk/internal/webhooks"
)

// RouterOptions toggles the observability layers of the router.
type RouterOptions struct {
	Metrics *obs.HTTPMetrics
	Tracing bool
}

// NewRouter assembles the HTTP front end.
func NewRouter(d *Dependencies, opts RouterOptions) (http.Handler, error) {
	cfg := d.Config
	lim, err := d.RedirectLimiter()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: cfg.SecureHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.PprofEnabled {
		r.Mount("/debug/pprof", security.BasicAuth(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{
		Checker:       health.Probes{Frappe: d.Frappe, Redis: d.Redis},
		FrappeTimeout: cfg.HealthFrappeTimeout,
		RedisTimeout:  cfg.HealthRedisTimeout,
	}
	if d.Breaker != nil {
		healthHandler.Circuit = func() string { return d.Breaker.State().String() }
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	webhookHandler := &webhooks.Handler{Service: d.WebhookService(), Fetcher: d.Frappe}
	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.TokenAuth{Token: cfg.DeskAPIToken}.Middleware)
		v.Post("/stripe-settings/{name}/webhooks", webhookHandler.Run)
	})

	checkoutHandler := &checkout.Handler{Redirector: &checkout.Redirector{
		Caller: d.Frappe,
		Logger: d.Logger.With().Str("component", "checkout").Logger(),
	}}
	limited := ratelimit.Handler{
		Limiter: lim,
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	r.With(limited.Middleware).Post("/payments/redirect", checkoutHandler.Redirect)

	return r, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
