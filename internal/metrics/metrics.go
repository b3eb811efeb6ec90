// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framegrab_extractions_total",
		Help: "Total number of extraction requests, by outcome",
	}, []string{"status"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framegrab_frames_extracted_total",
		Help: "Total number of frames extracted across all requests",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framegrab_stage_duration_seconds",
		Help:    "Duration of each extraction pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
