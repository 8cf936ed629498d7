package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// RemoteActionTotal counts remote action runs by operation and outcome.
	RemoteActionTotal *prometheus.CounterVec
	// RemoteActionLatency records remote call latency in milliseconds.
	RemoteActionLatency *prometheus.HistogramVec
	// FrappeCallTotal counts outbound RPC calls to the Frappe site by result.
	FrappeCallTotal *prometheus.CounterVec
	// WebhookActionTotal counts Stripe webhook create/delete actions by outcome.
	WebhookActionTotal *prometheus.CounterVec
	// PaymentRedirectTotal counts payment method selections by gateway and outcome.
	PaymentRedirectTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RemoteActionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_action_total",
			Help:      "Count of remote action runs by outcome.",
		}, []string{"operation", "outcome"})
		RemoteActionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_action_duration_ms",
			Help:      "Latency of the remote call behind a remote action in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"})
		FrappeCallTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frappe_call_total",
			Help:      "Count of outbound Frappe RPC calls by result.",
		}, []string{"method", "result"})
		WebhookActionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stripe_webhook_action_total",
			Help:      "Count of Stripe webhook create/delete actions by outcome.",
		}, []string{"action", "outcome"})
		PaymentRedirectTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_redirect_total",
			Help:      "Count of payment gateway redirects by outcome.",
		}, []string{"gateway", "outcome"})

		mustRegisterCollector(reg, RemoteActionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RemoteActionTotal = v
			}
		})
		mustRegisterCollector(reg, RemoteActionLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				RemoteActionLatency = v
			}
		})
		mustRegisterCollector(reg, FrappeCallTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FrappeCallTotal = v
			}
		})
		mustRegisterCollector(reg, WebhookActionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				WebhookActionTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentRedirectTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentRedirectTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
