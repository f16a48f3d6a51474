// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exposes Prometheus metrics for the bot and the ops server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector holds all metrics in a private registry.
type Collector struct {
	registry *prometheus.Registry

	Updates             *prometheus.CounterVec
	Interactions        *prometheus.CounterVec
	InteractionDuration *prometheus.HistogramVec
	Downloads           *prometheus.CounterVec
	DownloadBytes       prometheus.Counter
	Refreshes           *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	MenuNodes           prometheus.Gauge
	TelegramRequests    *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// NewCollector creates a collector with the given namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_total",
			Help:      "Telegram updates received, by kind",
		}, []string{"kind"}),

		Interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Handled menu interactions, by action and outcome",
		}, []string{"action", "outcome"}),

		InteractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_duration_seconds",
			Help:      "Time to handle one menu interaction",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),

		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "File downloads proxied to chats, by outcome",
		}, []string{"outcome"}),

		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes streamed to chats",
		}),

		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_refreshes_total",
			Help:      "Menu epoch refresh attempts, by outcome",
		}, []string{"outcome"}),

		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "menu_refresh_duration_seconds",
			Help:      "Time to fetch and build a menu epoch",
			Buckets:   prometheus.DefBuckets,
		}),

		MenuNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "menu_nodes",
			Help:      "Nodes in the installed menu epoch, placeholders included",
		}),

		TelegramRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_api_requests_total",
			Help:      "Bot API calls, by method and outcome",
		}, []string{"method", "outcome"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Ops HTTP requests",
		}, []string{"method", "route", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Ops HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.Updates,
		c.Interactions,
		c.InteractionDuration,
		c.Downloads,
		c.DownloadBytes,
		c.Refreshes,
		c.RefreshDuration,
		c.MenuNodes,
		c.TelegramRequests,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRefresh records one menu refresh attempt.
func (c *Collector) ObserveRefresh(took time.Duration, nodes int, err error) {
	c.RefreshDuration.Observe(took.Seconds())
	if err != nil {
		c.Refreshes.WithLabelValues(OutcomeError).Inc()
		return
	}
	c.Refreshes.WithLabelValues(OutcomeOK).Inc()
	c.MenuNodes.Set(float64(nodes))
}

// ObserveInteraction records one handled chat interaction.
func (c *Collector) ObserveInteraction(action string, took time.Duration, err error) {
	c.InteractionDuration.WithLabelValues(action).Observe(took.Seconds())
	c.Interactions.WithLabelValues(action, outcome(err)).Inc()
}

// ObserveDownload records a proxied file.
func (c *Collector) ObserveDownload(bytes int64, err error) {
	c.Downloads.WithLabelValues(outcome(err)).Inc()
	if bytes > 0 {
		c.DownloadBytes.Add(float64(bytes))
	}
}

// ObserveUpdate counts a received update.
func (c *Collector) ObserveUpdate(kind string) {
	c.Updates.WithLabelValues(kind).Inc()
}

// ObserveTelegramCall records one Bot API call.
func (c *Collector) ObserveTelegramCall(method string, err error) {
	c.TelegramRequests.WithLabelValues(method, outcome(err)).Inc()
}

// Middleware records request counts and durations labeled by chi route
// pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
