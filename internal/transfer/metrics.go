package transfer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hedisam/spscring/internal/custompromauto"
)

var (
	producedItems = custompromauto.Auto().NewCounterVec(prometheus.CounterOpts{
		Name: "spscring_items_produced_total",
		Help: "Total number of items handed to the buffer by the producer",
	}, []string{"variant"})

	consumedItems = custompromauto.Auto().NewCounterVec(prometheus.CounterOpts{
		Name: "spscring_items_consumed_total",
		Help: "Total number of items taken from the buffer by the consumer",
	}, []string{"variant"})

	occupancy = custompromauto.Auto().NewGaugeVec(prometheus.GaugeOpts{
		Name: "spscring_buffer_occupancy",
		Help: "Number of items in the buffer as last observed by the consumer",
	}, []string{"variant"})

	failedRuns = custompromauto.Auto().NewCounterVec(prometheus.CounterOpts{
		Name: "spscring_failed_runs_total",
		Help: "Total number of producer/consumer runs that ended with an error",
	}, []string{"variant"})
)
