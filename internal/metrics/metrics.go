// Package metrics содержит Prometheus-метрики сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector регистрирует и обновляет метрики прокси и HTTP-сервера.
type Collector struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	exhaustions     *prometheus.CounterVec
	requests        *prometheus.CounterVec
}

// NewCollector создает коллектор с собственным реестром.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "edurise",
				Subsystem: "apptrove",
				Name:      "attempts_total",
				Help:      "Total number of AppTrove attempts by operation, credential and outcome",
			},
			[]string{"operation", "credential", "outcome"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "edurise",
				Subsystem: "apptrove",
				Name:      "attempt_duration_seconds",
				Help:      "AppTrove attempt latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		exhaustions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "edurise",
				Subsystem: "apptrove",
				Name:      "exhaustions_total",
				Help:      "Total number of operations where every attempt failed",
			},
			[]string{"operation"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "edurise",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
	}

	c.registry.MustRegister(c.attempts, c.attemptDuration, c.exhaustions, c.requests)
	return c
}

// ObserveAttempt учитывает одну попытку обращения к AppTrove.
func (c *Collector) ObserveAttempt(operation, credential, outcome string, duration time.Duration) {
	c.attempts.WithLabelValues(operation, credential, outcome).Inc()
	c.attemptDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveExhaustion учитывает операцию, для которой не нашлось рабочей пары.
func (c *Collector) ObserveExhaustion(operation string) {
	c.exhaustions.WithLabelValues(operation).Inc()
}

// ObserveRequest учитывает обработанный HTTP-запрос.
func (c *Collector) ObserveRequest(method string, status int) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Registry возвращает реестр метрик
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler отдает метрики в формате Prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
