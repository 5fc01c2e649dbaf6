package ensemble

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var trainedForests = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sciforest",
	Subsystem: "ensemble",
	Name:      "forests_trained_total",
	Help:      "Random forests trained to completion",
})
