package decoding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_decoder_transactions_total",
			Help: "Total number of transactions run through the decoding pipeline",
		}, []string{"chain_id"})

	eventsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_decoder_events_total",
			Help: "Total number of history events produced, by event type",
		}, []string{"chain_id", "event_type"})

	handlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_decoder_handler_failures_total",
			Help: "Total number of log handlers and post rules that failed or panicked",
		}, []string{"chain_id", "decoder"})
)
