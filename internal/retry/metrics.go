package retry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hedisam/spscring/internal/custompromauto"
)

var (
	retries = custompromauto.Auto().NewCounterVec(prometheus.CounterOpts{
		Name: "spscring_retries_total",
		Help: "Total number of failed non-blocking attempts that were retried",
	}, []string{"op"})

	exhaustedOps = custompromauto.Auto().NewCounterVec(prometheus.CounterOpts{
		Name: "spscring_retries_exhausted_total",
		Help: "Total number of operations abandoned after running out of attempts",
	}, []string{"op"})
)
