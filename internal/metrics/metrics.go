// Package metrics defines the Prometheus collectors exposed by the pool.
// Collectors are registered on the default registry via promauto; embedding
// applications expose them with their own /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pool membership metrics
var (
	InstancesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torrouter_instances_created_total",
			Help: "Total number of tor instances successfully created",
		},
	)

	InstancesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torrouter_instances_removed_total",
			Help: "Total number of tor instances removed from the pool",
		},
	)

	InstancesCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "torrouter_instances_current",
			Help: "Current number of tor instances in the pool",
		},
	)

	InstanceStartupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torrouter_instance_startup_failures_total",
			Help: "Total number of instance creations that failed during startup",
		},
	)

	InstanceStartDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "torrouter_instance_start_duration_seconds",
			Help:    "Duration of tor instance startup until control-port readiness",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

// Selection and control metrics
var (
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torrouter_selections_total",
			Help: "Total number of next-instance selections",
		},
		[]string{"method"},
	)

	IdentityRotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "torrouter_identity_rotations_total",
			Help: "Total number of NEWNYM identity rotations requested",
		},
	)
)
