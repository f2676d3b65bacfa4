package obs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics groups collectors describing line-item pricing outcomes.
type PricingMetrics struct {
	// LineItemsBuilt counts pricing requests by unit type and result.
	LineItemsBuilt *prometheus.CounterVec
	// Quantity records resolved billable quantities per unit type.
	Quantity *prometheus.HistogramVec
	// ListingLookup counts listing snapshot lookups by source and result.
	ListingLookup *prometheus.CounterVec
	// QueryLatency records database query latency in milliseconds.
	QueryLatency *prometheus.HistogramVec
}

// NewPricingMetrics registers pricing collectors on reg, reusing collectors
// that are already registered under the same name.
func NewPricingMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PricingMetrics{
		LineItemsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_items_built_total",
			Help:      "Count of transaction line-item computations by outcome.",
		}, []string{"unit_type", "result"}),
		Quantity: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "line_item_quantity",
			Help:      "Distribution of resolved billable quantities.",
			Buckets:   []float64{1, 2, 3, 5, 7, 14, 30, 60, 120},
		}, []string{"unit_type"}),
		ListingLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_lookup_total",
			Help:      "Count of listing snapshot lookups by result.",
		}, []string{"result"}),
		QueryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_ms",
			Help:      "Database query latency in milliseconds.",
			Buckets:   []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"operation"}),
	}
	m.LineItemsBuilt = registerOrReuse(reg, m.LineItemsBuilt)
	m.Quantity = registerOrReuse(reg, m.Quantity)
	m.ListingLookup = registerOrReuse(reg, m.ListingLookup)
	m.QueryLatency = registerOrReuse(reg, m.QueryLatency)
	return m
}

// ObserveBuild records one pricing outcome. A nil receiver is a no-op.
func (m *PricingMetrics) ObserveBuild(unitType, result string, quantity int) {
	if m == nil {
		return
	}
	if unitType == "" {
		unitType = "unknown"
	}
	m.LineItemsBuilt.WithLabelValues(unitType, result).Inc()
	if quantity > 0 {
		m.Quantity.WithLabelValues(unitType).Observe(float64(quantity))
	}
}

// ObserveLookup records a listing lookup result. A nil receiver is a no-op.
func (m *PricingMetrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.ListingLookup.WithLabelValues(result).Inc()
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, collector C) C {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
			return collector
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
	return collector
}
