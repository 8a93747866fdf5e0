package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue reads a counter sample from reg matching every label in want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	next:
		for _, m := range fam.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("quote:expire").End(nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, m.Track("quote:expire").End(boom))

	assert.Equal(t, 1.0, counterValue(t, reg, "sparkle_jobs_total", map[string]string{"job": "quote:expire", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "sparkle_jobs_total", map[string]string{"job": "quote:expire", "status": "failure"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "sparkle_jobs_failures_total", map[string]string{"job": "quote:expire"}))
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddExpired(3)
	m.AddExpired(0)
	m.Notification("approved", nil)
	m.Notification("approved", errors.New("smtp"))

	assert.Equal(t, 3.0, counterValue(t, reg, "sparkle_quotes_expired_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "sparkle_notifications_total", map[string]string{"kind": "approved", "status": "sent"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "sparkle_notifications_total", map[string]string{"kind": "approved", "status": "failed"}))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.AddExpired(2)
	m.Notification("sent", nil)
	assert.NoError(t, m.Track("noop").End(nil))
}
