package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry so the
// handler serves exactly what the server registers, nothing global.
type Metrics struct {
	registry *prometheus.Registry

	MatchesCreated   prometheus.Counter
	MatchesFinalized prometheus.Counter
	DraftPicks       prometheus.Counter
	BetsPlaced       prometheus.Counter
	QueuePlayers     prometheus.Gauge
	SSEClients       prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inhouse_matches_created_total",
			Help: "Matches formed from the queue.",
		}),
		MatchesFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inhouse_matches_finalized_total",
			Help: "Matches reported and scored.",
		}),
		DraftPicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inhouse_draft_picks_total",
			Help: "Champion picks submitted by players.",
		}),
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inhouse_bets_placed_total",
			Help: "Bets accepted inside the window.",
		}),
		QueuePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inhouse_queue_players",
			Help: "Players currently waiting in the queue.",
		}),
		SSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inhouse_sse_clients",
			Help: "Connected event stream clients.",
		}),
	}
	m.registry.MustRegister(
		m.MatchesCreated,
		m.MatchesFinalized,
		m.DraftPicks,
		m.BetsPlaced,
		m.QueuePlayers,
		m.SSEClients,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
