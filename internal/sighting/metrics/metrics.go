package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SightingsCreated    prometheus.Counter
	SightingsDeleted    prometheus.Counter
	SubmissionsRejected *prometheus.CounterVec
	CheckinsCreated     prometheus.Counter
	CheckinsRejected    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SightingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rangerwatch_sightings_created_total",
			Help: "Total number of sightings accepted and persisted",
		}),
		SightingsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rangerwatch_sightings_deleted_total",
			Help: "Total number of sightings soft-deleted by the admin surface",
		}),
		SubmissionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rangerwatch_submissions_rejected_total",
			Help: "Total number of sighting submissions rejected, by reason",
		}, []string{"reason"}),
		CheckinsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rangerwatch_checkins_created_total",
			Help: "Total number of check-ins accepted and persisted",
		}),
		CheckinsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rangerwatch_checkins_rejected_total",
			Help: "Total number of check-ins rejected, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) RecordSubmissionRejected(reason string) {
	m.SubmissionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordCheckinRejected(reason string) {
	m.CheckinsRejected.WithLabelValues(reason).Inc()
}
