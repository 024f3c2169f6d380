package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the kiosk's Prometheus collectors.
type Metrics struct {
	Logins             *prometheus.CounterVec
	Scans              prometheus.Counter
	Matches            prometheus.Counter
	Expired            prometheus.Counter
	Confirmations      prometheus.Counter
	StaleConfirmations prometheus.Counter
	Feeds              *prometheus.CounterVec
	ScannerRunning     prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facetrack",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		Scans: f.NewCounter(prometheus.CounterOpts{
			Namespace: "facetrack",
			Name:      "scans_total",
			Help:      "Simulated scan cycles started.",
		}),
		Matches: f.NewCounter(prometheus.CounterOpts{
			Namespace: "facetrack",
			Name:      "matches_total",
			Help:      "Detection events produced.",
		}),
		Expired: f.NewCounter(prometheus.CounterOpts{
			Namespace: "facetrack",
			Name:      "matches_expired_total",
			Help:      "Detection events discarded without confirmation.",
		}),
		Confirmations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "facetrack",
			Name:      "confirmations_total",
			Help:      "Attendance confirmations accepted.",
		}),
		StaleConfirmations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "facetrack",
			Name:      "confirmations_stale_total",
			Help:      "Confirmations ignored because the event was no longer current.",
		}),
		Feeds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facetrack",
			Name:      "camera_feeds_total",
			Help:      "Scanner starts by feed source.",
		}, []string{"source"}),
		ScannerRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "facetrack",
			Name:      "scanner_running",
			Help:      "1 while the scanner is running.",
		}),
	}
}
