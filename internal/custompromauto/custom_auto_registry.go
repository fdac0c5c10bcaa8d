// Package custompromauto owns the registry spscring metrics are registered with.
// It is kept separate from the default registry so /metrics only exposes our own series.
package custompromauto

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registry = prometheus.NewRegistry()
	auto     = promauto.With(registry)
)

// Auto returns a factory that registers the collectors it creates with Registry.
func Auto() promauto.Factory {
	return auto
}

func Registry() *prometheus.Registry {
	return registry
}
