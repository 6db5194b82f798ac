package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	DIDsCreated       prometheus.Counter
	DIDsDeleted       prometheus.Counter
	ControllerChanges prometheus.Counter
	KeysAdded         prometheus.Counter
	AuthFailures      prometheus.Counter
	CreateDIDDuration prometheus.Histogram
	MutationDuration  prometheus.Histogram
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		DIDsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "did_registry_dids_created_total",
			Help: "Total number of identifiers registered",
		}),
		DIDsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "did_registry_dids_deleted_total",
			Help: "Total number of identifiers deleted",
		}),
		ControllerChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "did_registry_controller_changes_total",
			Help: "Total number of successful controller transfers",
		}),
		KeysAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "did_registry_keys_added_total",
			Help: "Total number of public keys appended to records",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "did_registry_authorization_failures_total",
			Help: "Total number of mutations rejected by the controller check",
		}),
		CreateDIDDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "did_registry_create_did_duration_seconds",
			Help:    "Duration of CreateDID operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		MutationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "did_registry_mutation_duration_seconds",
			Help:    "Duration of delete/set-controller/add-key operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveCreateDID records the duration of a CreateDID operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveCreateDID(start time.Time) {
	m.CreateDIDDuration.Observe(time.Since(start).Seconds())
}

// ObserveMutation records the duration of a mutating operation.
func (m *Metrics) ObserveMutation(start time.Time) {
	m.MutationDuration.Observe(time.Since(start).Seconds())
}
