package controllers

import (
	"net/http"

	"github.com/swimmingwebdev/simpletracker/internal/anomaly"
	"github.com/swimmingwebdev/simpletracker/internal/ingest"
	"github.com/swimmingwebdev/simpletracker/internal/metrics"
	"github.com/swimmingwebdev/simpletracker/internal/reconcile"
	"github.com/swimmingwebdev/simpletracker/internal/runtime"
	"github.com/swimmingwebdev/simpletracker/internal/snapshot"
	"github.com/swimmingwebdev/simpletracker/internal/stats"
	"github.com/swimmingwebdev/simpletracker/internal/store"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes and
// manages the lifecycle of individual controllers.
type ControllerRegistry struct {
	general   *GeneralController
	events    *EventsController
	readings  *ReadingsController
	storage   *StorageController
	stats     *StatsController
	checks    *ChecksController
	anomalies *AnomaliesController
}

// Deps carries the services the controllers are built over.
type Deps struct {
	Runtime   *runtime.Runtime
	Publisher *ingest.Publisher
	Reader    *snapshot.Reader
	Store     store.Store
	Stats     *stats.Service
	Reconcile *reconcile.Engine
	Anomaly   *anomaly.Detector
	Metrics   *metrics.Recorder
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(d Deps) *ControllerRegistry {
	return &ControllerRegistry{
		general:   NewGeneralController(d.Runtime, d.Metrics),
		events:    NewEventsController(d.Publisher),
		readings:  NewReadingsController(d.Reader),
		storage:   NewStorageController(d.Store),
		stats:     NewStatsController(d.Stats),
		checks:    NewChecksController(d.Reconcile),
		anomalies: NewAnomaliesController(d.Anomaly),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
//
// This method sets up every HTTP endpoint of the tracker: publish,
// feed reads, store range reads, stats, checks, anomalies, health,
// and metrics.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.events.RegisterRoutes(mux)
	r.readings.RegisterRoutes(mux)
	r.storage.RegisterRoutes(mux)
	r.stats.RegisterRoutes(mux)
	r.checks.RegisterRoutes(mux)
	r.anomalies.RegisterRoutes(mux)
}
