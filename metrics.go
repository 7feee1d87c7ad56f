package newsapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome labels of newsapi_feed_requests_total.
const (
	outcomeOK        = "ok"
	outcomeEmpty     = "empty"
	outcomeForbidden = "forbidden"
	outcomeError     = "error"
)

// metrics owns a private registry so several Apps can live in one process.
type metrics struct {
	registry     *prometheus.Registry
	feedRequests *prometheus.CounterVec
	feedRecords  prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		feedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "newsapi",
				Name:      "feed_requests_total",
				Help:      "News feed requests by outcome.",
			},
			[]string{"outcome"},
		),
		feedRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "newsapi",
			Name:      "feed_records",
			Help:      "Records returned per successful feed request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(
		m.feedRequests,
		m.feedRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observeFeed(outcome string, records int) {
	m.feedRequests.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.feedRecords.Observe(float64(records))
	}
}
