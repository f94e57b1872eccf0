package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forcemove",
		Subsystem: "hub",
		Name:      "messages_total",
		Help:      "Inbound wire messages by processing result.",
	}, []string{"result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "forcemove",
		Subsystem: "hub",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
	}, []string{"route"})
)
