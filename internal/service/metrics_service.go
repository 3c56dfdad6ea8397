package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are
// safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	uploads         *prometheus.CounterVec
	uploadDuration  prometheus.Observer
	writes          *prometheus.CounterVec
	downloads       *prometheus.CounterVec
	feedSubscribers prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homework_image_uploads_total",
		Help: "Image uploads performed while saving homework",
	}, []string{"result"})

	uploadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "homework_image_upload_seconds",
		Help:    "Duration of single image uploads",
		Buckets: prometheus.DefBuckets,
	})

	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homework_writes_total",
		Help: "Homework record writes by operation and result",
	}, []string{"op", "result"})

	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "homework_image_downloads_total",
		Help: "Images fetched by bulk downloads",
	}, []string{"result"})

	feedSubscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "homework_feed_subscribers",
		Help: "Live feed subscriptions held by this instance",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		uploads, uploadDuration, writes, downloads, feedSubscribers, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		uploads:         uploads,
		uploadDuration:  uploadDuration,
		writes:          writes,
		downloads:       downloads,
		feedSubscribers: feedSubscribers,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveUpload records one image upload.
func (m *MetricsService) ObserveUpload(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result(ok)).Inc()
	m.uploadDuration.Observe(duration.Seconds())
}

// ObserveWrite records a homework create, update or delete.
func (m *MetricsService) ObserveWrite(op string, ok bool) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(op, result(ok)).Inc()
}

// ObserveDownloads records the outcome of a bulk download.
func (m *MetricsService) ObserveDownloads(saved, failed int) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues("ok").Add(float64(saved))
	m.downloads.WithLabelValues("error").Add(float64(failed))
}

// SetFeedSubscribers reports the number of live feed subscriptions.
func (m *MetricsService) SetFeedSubscribers(n int) {
	if m == nil {
		return
	}
	m.feedSubscribers.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
