package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Logins.WithLabelValues("success").Inc()
	m.Logins.WithLabelValues("failure").Add(2)
	m.Feeds.WithLabelValues("synthetic").Inc()
	m.Scans.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			key := f.GetName()
			for _, lp := range metric.GetLabel() {
				key += "/" + lp.GetValue()
			}
			if c := metric.GetCounter(); c != nil {
				got[key] = c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, got["facetrack_logins_total/success"])
	assert.Equal(t, 2.0, got["facetrack_logins_total/failure"])
	assert.Equal(t, 1.0, got["facetrack_camera_feeds_total/synthetic"])
	assert.Equal(t, 1.0, got["facetrack_scans_total"])
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
