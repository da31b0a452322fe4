package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks catalog cache effectiveness.
type Metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewMetrics registers cache metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "renovd_catalog_cache_hits_total",
			Help: "Catalog cache lookups served from memory.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "renovd_catalog_cache_misses_total",
			Help: "Catalog cache lookups that fell through to the provider.",
		}),
	}
}
