// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics exports magnetometer samples as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/GermanBionicSystems/melexis/mlx90392"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one sensor.
type Metrics struct {
	reg     *prometheus.Registry
	field   *prometheus.GaugeVec
	raw     *prometheus.GaugeVec
	samples prometheus.Counter
	errors  *prometheus.CounterVec
	clients prometheus.Gauge
}

// New returns collectors registered in a private registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		field: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mlx90392_field_microtesla",
			Help: "Last magnetic field sample in µT.",
		}, []string{"axis"}),
		raw: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mlx90392_field_counts",
			Help: "Last magnetic field sample in counts.",
		}, []string{"axis"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlx90392_samples_total",
			Help: "Samples read.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlx90392_errors_total",
			Help: "Failures by stage.",
		}, []string{"stage"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mlx90392_websocket_clients",
			Help: "Connected websocket clients.",
		}),
	}
	m.reg.MustRegister(m.field, m.raw, m.samples, m.errors, m.clients)
	return m
}

// Observe records a measurement. A measurement carrying Err only counts as
// a read error.
func (m *Metrics) Observe(s mlx90392.Measurement) {
	if s.Err != nil {
		m.Error("read")
		return
	}
	m.samples.Inc()
	m.field.WithLabelValues("x").Set(s.Field.X)
	m.field.WithLabelValues("y").Set(s.Field.Y)
	m.field.WithLabelValues("z").Set(s.Field.Z)
	m.field.WithLabelValues("norm").Set(s.Field.Magnitude())
	m.raw.WithLabelValues("x").Set(float64(s.Raw.X))
	m.raw.WithLabelValues("y").Set(float64(s.Raw.Y))
	m.raw.WithLabelValues("z").Set(float64(s.Raw.Z))
}

// Error counts a failure at stage, e.g. "read" or "publish".
func (m *Metrics) Error(stage string) {
	m.errors.WithLabelValues(stage).Inc()
}

// Clients sets the number of connected websocket clients.
func (m *Metrics) Clients(n int) {
	m.clients.Set(float64(n))
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
