// Package metrics define los collectors Prometheus del broker. Vive aparte
// para que services y middlewares puedan registrar sin ciclos de import.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yesod"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latencia de los requests HTTP",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Callbacks de login por proveedor y resultado",
	}, []string{"provider", "outcome"})

	TokenRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Intentos de refresh por resultado",
	}, []string{"outcome"})

	RefreshReuseDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_reuse_detected_total",
		Help:      "Familias revocadas por reuso de refresh token",
	})

	EventsEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_emitted_total",
		Help:      "Eventos de ciclo de vida emitidos por tipo y resultado",
	}, []string{"type", "outcome"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestsTotal, HTTPRequestDuration, LoginsTotal,
		TokenRefreshTotal, RefreshReuseDetected, EventsEmittedTotal,
	}
}

// Register registra los collectors en reg (o el default si es nil), ignorando duplicados.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
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

func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func Login(provider, outcome string) { LoginsTotal.WithLabelValues(provider, outcome).Inc() }

func Refresh(outcome string) { TokenRefreshTotal.WithLabelValues(outcome).Inc() }

func ReuseDetected() { RefreshReuseDetected.Inc() }

func EventEmitted(eventType, outcome string) {
	EventsEmittedTotal.WithLabelValues(eventType, outcome).Inc()
}
