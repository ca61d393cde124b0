// Package metrics provides Prometheus metrics for migration runs.
//
// Counters are incremented by the pipeline stages as items flow through:
//
//   - ceph2swift_objects_listed_total: objects pulled from the source listing
//   - ceph2swift_objects_uploaded_total: objects copied to the destination
//   - ceph2swift_objects_skipped_total: objects dropped, by reason
//   - ceph2swift_folders_created_total: folder placeholders created
//   - ceph2swift_checksum_mismatches_total: post-upload verification failures
//
// The metrics endpoint is optional; long-running migrations can expose it
// with --metrics-listen.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Skip reasons used as label values on ObjectsSkipped.
const (
	ReasonFiltered      = "filtered"
	ReasonAlreadyExists = "already_exists"
	ReasonFailed        = "failed"
)

var (
	// ObjectsListed counts objects pulled from the source listing
	ObjectsListed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ceph2swift_objects_listed_total",
			Help: "Total number of objects pulled from the source listing",
		},
	)

	// ObjectsUploaded counts objects copied to the destination
	ObjectsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ceph2swift_objects_uploaded_total",
			Help: "Total number of objects uploaded to the destination",
		},
	)

	// ObjectsSkipped counts dropped objects by reason
	ObjectsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ceph2swift_objects_skipped_total",
			Help: "Total number of objects skipped, by reason",
		},
		[]string{"reason"},
	)

	// FoldersCreated counts folder placeholders created in the destination
	FoldersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ceph2swift_folders_created_total",
			Help: "Total number of folder placeholders created",
		},
	)

	// ChecksumMismatches counts post-upload verification failures
	ChecksumMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ceph2swift_checksum_mismatches_total",
			Help: "Total number of post-upload checksum mismatches",
		},
	)

	// RunDuration records the wall-clock duration of the last run
	RunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ceph2swift_run_duration_seconds",
			Help: "Wall-clock duration of the last migration run in seconds",
		},
	)
)

// ObserveRunDuration records the elapsed time of a completed run.
func ObserveRunDuration(d time.Duration) {
	RunDuration.Set(d.Seconds())
}

// Handler returns an HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes the metrics endpoint on addr in the background. Failures are
// logged but never abort a migration.
func Serve(addr string) {
	go func() {
		if err := http.ListenAndServe(addr, Handler()); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics listener stopped")
		}
	}()
}
