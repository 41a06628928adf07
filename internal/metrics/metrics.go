// Package metrics define las métricas Prometheus del servicio. Viven en un
// paquete propio para que http, events y el cliente Yandex las compartan sin
// ciclos de import.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})

	// Login flow
	LoginOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yandexid_login_total",
		Help: "Callbacks de Yandex ID por resultado (success|failed) y motivo",
	}, []string{"outcome", "reason"})

	AccountResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yandexid_account_resolutions_total",
		Help: "Cuentas resueltas por camino: existing|linked|created",
	}, []string{"path"})

	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yandexid_upstream_duration_seconds",
		Help:    "Latencia de las llamadas a oauth.yandex.ru y login.yandex.ru",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"code", "method"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yandexid_rate_limited_total",
		Help: "Requests rechazadas por rate limit",
	}, []string{"route"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestsTotal, HTTPRequestDuration, HTTPInflight,
		LoginOutcomes, AccountResolutions, UpstreamDuration, RateLimited,
	}
}

// Register registra todas las métricas en reg (o el default si es nil).
// Registrar dos veces no es un error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := registerCollector(reg, c); err != nil {
			return err
		}
	}
	return nil
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Handler expone /metrics para el gatherer dado (o el default si es nil).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// InstrumentUpstream mide la latencia de las llamadas salientes hechas con rt.
func InstrumentUpstream(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperDuration(UpstreamDuration, rt)
}
