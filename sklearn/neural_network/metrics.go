package neural_network

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	epochsTrained = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sciforest",
		Subsystem: "neural_network",
		Name:      "epochs_total",
		Help:      "Training epochs completed, by estimator",
	}, []string{"estimator"})

	epochLoss = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sciforest",
		Subsystem: "neural_network",
		Name:      "epoch_loss",
		Help:      "Mean training loss of the last completed epoch, by estimator",
	}, []string{"estimator"})
)

func observeEpoch(estimator string, loss float64) {
	epochsTrained.WithLabelValues(estimator).Inc()
	epochLoss.WithLabelValues(estimator).Set(loss)
}
