/*
Copyright © 2024 the InMAP authors.
This file is part of overlay.

overlay is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

overlay is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with overlay.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package metrics records overlay measurements with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements overlay.Recorder using Prometheus. Each Collector
// has its own registry.
type Collector struct {
	registry *prometheus.Registry

	overlays *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
	tasks    *prometheus.CounterVec
	lastRows *prometheus.GaugeVec
}

// NewCollector creates a new collector whose metric names start with
// namespace, or "overlay" if namespace is empty.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "overlay"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		overlays: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of completed overlays",
			},
			[]string{"mode"},
		),

		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "Overlay duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),

		rows: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_rows_total",
				Help:      "Total number of output rows",
			},
			[]string{"mode"},
		),

		tasks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Total number of pairwise geometry tasks",
			},
			[]string{"mode", "status"},
		),

		lastRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_output_rows",
				Help:      "Number of rows produced by the most recent overlay",
			},
			[]string{"mode"},
		),
	}
}

// ObserveOverlay records a completed overlay.
func (c *Collector) ObserveOverlay(mode string, d time.Duration, rows int) {
	c.overlays.WithLabelValues(mode).Inc()
	c.duration.WithLabelValues(mode).Observe(d.Seconds())
	c.rows.WithLabelValues(mode).Add(float64(rows))
	c.lastRows.WithLabelValues(mode).Set(float64(rows))
}

// AddTasks records n pairwise tasks that finished with status.
func (c *Collector) AddTasks(mode, status string, n int) {
	c.tasks.WithLabelValues(mode, status).Add(float64(n))
}

// Gatherer returns the registry holding c's metrics.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteToTextfile writes the metrics in the text exposition format to
// filename, for collection by the node exporter textfile collector.
func (c *Collector) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, c.registry)
}
