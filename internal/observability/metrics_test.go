package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/tickets/:id", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/tickets/:id", "GET", 200, 5*time.Millisecond)
	m.RecordError("/tickets/:id/assign", "POST", "NOT_FOUND")
	m.RecordTransition("assign")
	m.RecordNotificationFailure("smtp")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/tickets/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/tickets/:id/assign", "POST", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("assign")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifyFailures.WithLabelValues("smtp")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordTransition("resolve")
		m.RecordNotificationFailure("slack")
	})
}
