// Package metrics exposes the Prometheus series for purchases, funding and
// ledger repairs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var PurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "billpay",
	Name:      "purchases_total",
	Help:      "Purchases by product and outcome (completed, failed, insufficient_funds, under_review).",
}, []string{"product", "outcome"})

var FundingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "billpay",
	Name:      "funding_events_total",
	Help:      "Payment gateway events by source and result (applied, duplicate, failed, dropped).",
}, []string{"source", "result"})

var RollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "billpay",
	Name:      "rollbacks_total",
	Help:      "Compensating rollbacks by result.",
}, []string{"result"})

var InconsistenciesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "billpay",
	Name:      "inconsistencies_total",
	Help:      "Ledger state conflicts detected, by source.",
}, []string{"source"})

var SweptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "billpay",
	Name:      "sweep_transactions_total",
	Help:      "Stale pending transactions handled by the reconciliation sweep.",
}, []string{"result"})

var FulfillmentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "billpay",
	Name:      "fulfillment_duration_seconds",
	Help:      "Reseller call latency by product.",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"product"})

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
