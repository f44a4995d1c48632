package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Operations counts coordinator operations by game, operation and
	// result ("ok" or the error code).
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playroom_operations_total",
			Help: "Total room operations processed",
		},
		[]string{"game", "op", "result"},
	)

	// RoomsActive tracks live rooms per game kind.
	RoomsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playroom_rooms_active",
			Help: "Currently registered rooms",
		},
		[]string{"game"},
	)

	// SubscribersActive tracks open event streams per game kind.
	SubscribersActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playroom_subscribers_active",
			Help: "Currently connected event stream subscribers",
		},
		[]string{"game"},
	)

	// RateLimited counts requests blocked by the rate limiter.
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "playroom_rate_limited_total",
			Help: "Total requests blocked by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(Operations)
	prometheus.MustRegister(RoomsActive)
	prometheus.MustRegister(SubscribersActive)
	prometheus.MustRegister(RateLimited)
}

// Handler returns the prometheus scrape handler for the metrics port.
func Handler() http.Handler {
	return promhttp.Handler()
}
