package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_variant_reconcile_total",
			Help: "Variant reconciliations by outcome.",
		},
		[]string{"outcome"},
	)
	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_variant_reconcile_duration_seconds",
			Help:    "Duration of variant reconciliations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)
	variantRemovals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_variant_removals_total",
			Help: "Variants removed during reconciliation, by action.",
		},
		[]string{"action"},
	)
	offerUpserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_offer_upserts_total",
			Help: "Offer upserts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(reconcileTotal)
	prometheus.MustRegister(reconcileDuration)
	prometheus.MustRegister(variantRemovals)
	prometheus.MustRegister(offerUpserts)
}

func RecordReconcile(outcome string, duration time.Duration) {
	reconcileTotal.WithLabelValues(outcome).Inc()
	reconcileDuration.Observe(duration.Seconds())
}

func RecordVariantRemoval(action string) {
	variantRemovals.WithLabelValues(action).Inc()
}

// RecordOfferUpsert counts one upsert; result is "created", "applied", "queued", "unchanged" or an error kind.
func RecordOfferUpsert(result string) {
	offerUpserts.WithLabelValues(result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
