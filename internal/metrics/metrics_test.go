package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTransition("work_order", "completed")
	m.ObserveTransition("work_order", "completed")
	m.ObservePrice("marketplace")
	m.ObserveNotification("mail", nil)
	m.ObserveNotification("mail", errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("work_order", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricesComputed.WithLabelValues("marketplace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("mail", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("mail", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("task", "done")
		m.ObservePrice("local")
		m.ObserveNotification("hub", nil)
	})
}
