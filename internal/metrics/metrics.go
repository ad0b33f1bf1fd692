package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeAvailable   = "available"
	OutcomeUpToDate    = "up_to_date"
	OutcomeUnpublished = "unpublished"
)

// Metrics holds the glint collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	checksTotal       *prometheus.CounterVec
	downloadsTotal    *prometheus.CounterVec
	broadcastsTotal   *prometheus.CounterVec
	deliveriesTotal   prometheus.Counter
	droppedTotal      prometheus.Counter
	openSurfaces      prometheus.Gauge
	invokeDuration    *prometheus.HistogramVec
	feedRequestsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	promFactory := promauto.With(reg)
	return &Metrics{
		checksTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_update_checks_total",
			Help: "Update checks labelled by outcome",
		}, []string{"outcome"}),
		downloadsTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_update_downloads_total",
			Help: "Download requests labelled by outcome",
		}, []string{"outcome"}),
		broadcastsTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_broadcasts_total",
			Help: "Notifications broadcast to UI surfaces labelled by channel",
		}, []string{"channel"}),
		deliveriesTotal: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "glint_surface_deliveries_total",
			Help: "Notifications queued for delivery to a UI surface",
		}),
		droppedTotal: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "glint_surface_dropped_total",
			Help: "Notifications dropped because a surface queue was full",
		}),
		openSurfaces: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "glint_open_surfaces",
			Help: "Current number of connected UI surfaces",
		}),
		invokeDuration: promFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glint_invoke_duration_seconds",
			Help:    "Duration of bridge invocations labelled by channel and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"channel", "status"}),
		feedRequestsTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "glint_feed_requests_total",
			Help: "Outgoing update feed and download requests labelled by host and status",
		}, []string{"host", "status"}),
	}
}

func (m *Metrics) CheckCompleted(outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DownloadRequested(outcome string) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(outcome).Inc()
}

// Broadcast records one broadcast and the number of surfaces it reached
func (m *Metrics) Broadcast(channel string, delivered int) {
	if m == nil {
		return
	}
	m.broadcastsTotal.WithLabelValues(channel).Inc()
	m.deliveriesTotal.Add(float64(delivered))
}

func (m *Metrics) DeliveryDropped() {
	if m == nil {
		return
	}
	m.droppedTotal.Inc()
}

func (m *Metrics) SurfaceOpened() {
	if m == nil {
		return
	}
	m.openSurfaces.Inc()
}

func (m *Metrics) SurfaceClosed() {
	if m == nil {
		return
	}
	m.openSurfaces.Dec()
}

// ObserveInvoke records how long a bridge invocation took
func (m *Metrics) ObserveInvoke(channel string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	status := OutcomeSuccess
	if !ok {
		status = OutcomeFailure
	}
	m.invokeDuration.WithLabelValues(channel, status).Observe(d.Seconds())
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// RoundTripper counts outgoing feed requests
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if m == nil {
		return next
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		res, err := next.RoundTrip(req)

		status := "0"
		if res != nil {
			status = strconv.Itoa(res.StatusCode)
		}
		host := req.Host
		if host == "" && req.URL != nil {
			host = req.URL.Host
		}
		m.feedRequestsTotal.WithLabelValues(host, status).Inc()

		return res, err
	})
}
