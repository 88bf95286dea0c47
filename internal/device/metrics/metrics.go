package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DevicesRegistered prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		DevicesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rangerwatch_devices_registered_total",
			Help: "Total number of anonymous user numbers handed out",
		}),
	}
}
