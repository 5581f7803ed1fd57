package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records derivative work. A nil *Collector is valid and records
// nothing, so callers never need to guard.
type Collector struct {
	originalsStored  prometheus.Counter
	derivativesTotal *prometheus.CounterVec
	encodeFailures   *prometheus.CounterVec
	encodeDuration   *prometheus.HistogramVec
	filesDeleted     prometheus.Counter
	deleteErrors     prometheus.Counter
}

// New registers the gallery collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		originalsStored: f.NewCounter(prometheus.CounterOpts{
			Name: "gallery_originals_stored_total",
			Help: "Total number of original uploads written to the gallery root",
		}),
		derivativesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_derivatives_total",
			Help: "Derivatives handled, by folder and outcome (generated or already_exists)",
		}, []string{"folder", "outcome"}),
		encodeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_encode_failures_total",
			Help: "Total number of failed decode or encode steps, by folder",
		}, []string{"folder"}),
		encodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gallery_encode_duration_seconds",
			Help:    "Time spent resizing and writing one derivative",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"folder"}),
		filesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "gallery_files_deleted_total",
			Help: "Total number of original and derivative files removed",
		}),
		deleteErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "gallery_delete_errors_total",
			Help: "Total number of files that could not be removed",
		}),
	}
}

func (c *Collector) OriginalStored() {
	if c == nil {
		return
	}
	c.originalsStored.Inc()
}

func (c *Collector) DerivativeGenerated(folder string, took time.Duration) {
	if c == nil {
		return
	}
	c.derivativesTotal.WithLabelValues(folder, "generated").Inc()
	c.encodeDuration.WithLabelValues(folder).Observe(took.Seconds())
}

func (c *Collector) DerivativeSkipped(folder string) {
	if c == nil {
		return
	}
	c.derivativesTotal.WithLabelValues(folder, "already_exists").Inc()
}

func (c *Collector) EncodeFailed(folder string) {
	if c == nil {
		return
	}
	c.encodeFailures.WithLabelValues(folder).Inc()
}

func (c *Collector) Deleted(files, failures int) {
	if c == nil {
		return
	}
	c.filesDeleted.Add(float64(files))
	c.deleteErrors.Add(float64(failures))
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
