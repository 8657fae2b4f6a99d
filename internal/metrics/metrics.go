package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ussdbridge_requests_total",
			Help: "Inbound InsertMO requests by outcome",
		},
		[]string{"outcome"}, // accepted | rejected_decode | rejected_validation
	)

	ForwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ussdbridge_forwards_total",
			Help: "Deferred partner forward calls by result",
		},
		[]string{"result"}, // ok | error
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		RequestsTotal,
		ForwardsTotal,
	)
}
