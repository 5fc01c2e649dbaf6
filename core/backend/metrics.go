package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

var (
	// tasksTotal counts finished tasks.
	// Labels: backend, status (success, error)
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sciforest",
		Subsystem: "backend",
		Name:      "tasks_total",
		Help:      "Total tasks processed by a backend",
	}, []string{"backend", "status"})

	// taskDuration measures the run time of a single task.
	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sciforest",
		Subsystem: "backend",
		Name:      "task_duration_seconds",
		Help:      "Task run time in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"backend"})

	queueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sciforest",
		Subsystem: "backend",
		Name:      "queue_length",
		Help:      "Tasks waiting for the next Process call",
	})
)
