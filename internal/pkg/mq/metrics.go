package mq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "mq",
		Name:      "published_total",
		Help:      "Messages successfully written to Kafka.",
	}, []string{"topic"})

	publishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "mq",
		Name:      "publish_failed_total",
		Help:      "Messages that could not be written to Kafka.",
	}, []string{"topic"})

	deadLetteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "mq",
		Name:      "dead_lettered_total",
		Help:      "Messages redirected to a dead letter topic, by source topic.",
	}, []string{"topic"})

	handlerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "mq",
		Name:      "handler_retries_total",
		Help:      "Handler re-invocations after a retryable failure.",
	}, []string{"topic"})
)
