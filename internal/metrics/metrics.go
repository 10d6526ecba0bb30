package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide counters. One instance is created in main
// and threaded through the middleware and services that report on it.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	MessagesSent     prometheus.Counter
	MessagesFailed   prometheus.Counter
	ContactsImported prometheus.Counter
	CampaignLaunches *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campaignhub_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campaignhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "campaignhub_messages_sent_total",
			Help: "WhatsApp messages accepted by the provider.",
		}),
		MessagesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "campaignhub_messages_failed_total",
			Help: "WhatsApp messages rejected or errored.",
		}),
		ContactsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "campaignhub_contacts_imported_total",
			Help: "Contacts created through CSV import.",
		}),
		CampaignLaunches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campaignhub_campaign_launches_total",
			Help: "Campaign launch attempts by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "campaignhub_active_sessions",
			Help: "Sessions created minus sessions explicitly destroyed or revoked; TTL lapses are not observed.",
		}),
	}
}
