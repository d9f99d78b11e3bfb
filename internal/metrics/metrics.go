// Package metrics exposes Prometheus counters for the processing runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the application's own registry, served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// TicketsProcessed counts tickets that went through the routing
// pipeline, by terminal status.
var TicketsProcessed = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "routing",
	Name:      "tickets_processed_total",
	Help:      "Tickets processed, by terminal assignment status",
}, []string{"status"})

// OfficeSelections counts office choices by selection rule, splitting
// geo-resolved picks from hub fallbacks.
var OfficeSelections = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "routing",
	Name:      "office_selections_total",
	Help:      "Office selections, by rule (city match, nearest by geo, hub fallback)",
}, []string{"rule"})

// UnassignedReasons counts terminal unassigned outcomes by the reason
// the last eligibility stage reported.
var UnassignedReasons = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "routing",
	Name:      "unassigned_reasons_total",
	Help:      "Unassigned tickets, by final eligibility reason code",
}, []string{"reason"})

// ClassifierErrors counts failed classifier calls.
var ClassifierErrors = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "routing",
	Name:      "classifier_errors_total",
	Help:      "Classifier calls that returned an error",
})
