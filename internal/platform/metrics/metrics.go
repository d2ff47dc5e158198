// Package metrics declares the Prometheus collectors of the ledger services.
// Collectors register with the default registry on package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerEntriesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_written_total",
		Help: "Ledger entries appended, by entry type",
	}, []string{"type"})

	EscrowHolds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_escrow_holds_total",
		Help: "Hold attempts, by outcome (placed, insufficient, error)",
	}, []string{"outcome"})

	FundingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_funding_decisions_total",
		Help: "Approve and reject attempts on funding requests",
	}, []string{"kind", "decision", "outcome"})

	IdempotencyResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_idempotency_results_total",
		Help: "Idempotency guard outcomes (miss, replay, in_progress, rejected, released)",
	}, []string{"result"})

	ExternalTransferDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_external_transfer_duration_seconds",
		Help:    "Latency of external transfer calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})

	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_outbox_messages_total",
		Help: "Outbox messages handled by the poller, by outcome",
	}, []string{"outcome"})
)
