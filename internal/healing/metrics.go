// internal/healing/metrics.go
package healing

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xkilldash9x/scalpel-heal/api/schemas"
)

// MetricsSink counts healing events per winning strategy and element kind.
type MetricsSink struct {
	events *prometheus.CounterVec
}

var _ Sink = (*MetricsSink)(nil)

// NewMetricsSink registers the healing counters with reg. Registering twice
// against the same registry reuses the existing collector.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalpel_heal_healing_events_total",
			Help: "Total number of elements resolved by a fallback or healing strategy",
		},
		[]string{"strategy", "kind"},
	)
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	return &MetricsSink{events: vec}, nil
}

// Record increments the counter for the event's strategy and kind.
func (m *MetricsSink) Record(event schemas.HealingEvent) error {
	m.events.WithLabelValues(event.StrategyName, event.ElementKind).Inc()
	return nil
}

// ResolutionMetrics observes resolution outcomes of locators.
type ResolutionMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewResolutionMetrics registers the resolution counter with reg through
// promauto; it panics on a duplicate registration.
func NewResolutionMetrics(reg prometheus.Registerer) *ResolutionMetrics {
	return &ResolutionMetrics{
		outcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalpel_heal_resolutions_total",
				Help: "Total number of element resolutions by result",
			},
			[]string{"result"},
		),
	}
}

// Resolution results.
const (
	ResultPrimary  = "primary"
	ResultFallback = "fallback"
	ResultHealed   = "healed"
	ResultFailed   = "failed"
)

// Observe counts one resolution. A nil receiver is a no-op.
func (m *ResolutionMetrics) Observe(result string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(result).Inc()
}
