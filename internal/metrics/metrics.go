package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application collectors. Use New with a dedicated registry in tests.
type Metrics struct {
	StatusTransitions *prometheus.CounterVec
	PricesComputed    *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizdesk",
			Name:      "status_transitions_total",
			Help:      "Status changes committed, by record kind and target status.",
		}, []string{"entity", "to"}),
		PricesComputed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizdesk",
			Name:      "prices_computed_total",
			Help:      "Prices computed, by pipeline.",
		}, []string{"pipeline"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizdesk",
			Name:      "notifications_total",
			Help:      "Notification deliveries, by channel and result.",
		}, []string{"channel", "result"}),
	}
}

// Default is registered with the global prometheus registry served on /metrics
var Default = New(prometheus.DefaultRegisterer)

func (m *Metrics) ObserveTransition(entity, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(entity, to).Inc()
}

func (m *Metrics) ObservePrice(pipeline string) {
	if m == nil {
		return
	}
	m.PricesComputed.WithLabelValues(pipeline).Inc()
}

func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Notifications.WithLabelValues(channel, result).Inc()
}
