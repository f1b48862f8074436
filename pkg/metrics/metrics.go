package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OpenChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibelink_open_channels",
		Help: "Currently open live channels.",
	})
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibelink_events_delivered_total",
		Help: "Events written to a live channel.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibelink_events_dropped_total",
		Help: "Events that could not be written to a live channel.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibelink_messages_sent_total",
		Help: "Messages accepted by the send endpoint.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
