// internal/healing/reporter.go
package healing

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-heal/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink receives every recorded healing event. Sinks are best-effort: a
// returned error or a panic is logged and never reaches the caller of
// AddEvent.
type Sink interface {
	Record(event schemas.HealingEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event schemas.HealingEvent) error

func (f SinkFunc) Record(event schemas.HealingEvent) error { return f(event) }

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithSink registers an additional sink.
func WithSink(s Sink) ReporterOption {
	return func(r *Reporter) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// Reporter is an append-only, in-memory log of healing events. It is safe for
// concurrent use; parallel workers may share one Reporter or each own one.
// Nothing is evicted automatically; call Clear between runs.
type Reporter struct {
	mu      sync.Mutex
	enabled bool
	events  []schemas.HealingEvent

	sinks  []Sink
	now    func() time.Time
	logger *zap.Logger
}

// NewReporter returns an enabled, empty Reporter.
func NewReporter(logger *zap.Logger, opts ...ReporterOption) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reporter{
		enabled: true,
		now:     time.Now,
		logger:  logger.Named("healing"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetEnabled toggles recording. While disabled AddEvent is a no-op.
func (r *Reporter) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()
}

func (r *Reporter) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// AddEvent appends event, filling in ID and Timestamp when missing, logs a
// one-line notice and forwards the event to the sinks.
func (r *Reporter) AddEvent(event schemas.HealingEvent) {
	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now().UTC()
	}
	r.events = append(r.events, event)
	sinks := r.sinks
	r.mu.Unlock()

	r.logger.Info("Element healed.",
		zap.String("purpose", event.Purpose),
		zap.String("strategy", event.StrategyName),
		zap.String("resolved", event.ResolvedDescription),
	)
	for _, s := range sinks {
		r.deliver(s, event)
	}
}

func (r *Reporter) deliver(s Sink, event schemas.HealingEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("Healing sink panicked.", zap.Any("panic", p), zap.String("event_id", event.ID))
		}
	}()
	if err := s.Record(event); err != nil {
		r.logger.Warn("Healing sink failed.", zap.Error(err), zap.String("event_id", event.ID))
	}
}

// Events returns a copy of the log in insertion order.
func (r *Reporter) Events() []schemas.HealingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schemas.HealingEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Len is the number of recorded events.
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Clear drops every recorded event.
func (r *Reporter) Clear() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Summarize groups the log by purpose and counts strategy wins. Every purpose
// healed at least twice gets a recommendation naming its dominant strategy;
// ties go to the strategy that won first. Recommendations follow the order in
// which purposes were first healed.
func (r *Reporter) Summarize() schemas.HealingSummary {
	return summarize(r.Events())
}

func summarize(events []schemas.HealingEvent) schemas.HealingSummary {
	summary := schemas.HealingSummary{
		TotalHealed:     len(events),
		StrategiesUsed:  make(map[string]int),
		ElementsHealed:  make(map[string][]schemas.HealingEvent),
		Recommendations: []string{},
	}

	var purposes []string
	for _, e := range events {
		summary.StrategiesUsed[e.StrategyName]++
		if _, seen := summary.ElementsHealed[e.Purpose]; !seen {
			purposes = append(purposes, e.Purpose)
		}
		summary.ElementsHealed[e.Purpose] = append(summary.ElementsHealed[e.Purpose], e)
	}

	for _, purpose := range purposes {
		healed := summary.ElementsHealed[purpose]
		if len(healed) < 2 {
			continue
		}
		strategy, count := dominantStrategy(healed)
		summary.Recommendations = append(summary.Recommendations, recommendation(purpose, len(healed), strategy, count))
	}
	return summary
}

// dominantStrategy returns the most frequent strategy, preferring the one seen
// first on ties.
func dominantStrategy(events []schemas.HealingEvent) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, e := range events {
		if counts[e.StrategyName] == 0 {
			order = append(order, e.StrategyName)
		}
		counts[e.StrategyName]++
	}
	best := order[0]
	for _, name := range order[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best, counts[best]
}

func recommendation(purpose string, healed int, strategy string, wins int) string {
	if strategy == schemas.ExplicitFallbackStrategy {
		return fmt.Sprintf("%q was healed %d times, %d by an explicit fallback: promote that fallback to the primary locator.",
			purpose, healed, wins)
	}
	return fmt.Sprintf("%q was healed %d times, %d via %q: rewrite its primary locator to use the %s strategy.",
		purpose, healed, wins, strategy, strategy)
}

// PrintReport renders the summary as plain text.
func (r *Reporter) PrintReport(w io.Writer) error {
	events := r.Events()
	s := summarize(events)
	ew := &errWriter{w: w}

	ew.printf("Healing report\n")
	ew.printf("==============\n")
	if s.TotalHealed == 0 {
		ew.printf("No elements required healing.\n")
		return ew.err
	}
	ew.printf("Total healed: %d\n\n", s.TotalHealed)

	ew.printf("Strategies used:\n")
	names := make([]string, 0, len(s.StrategiesUsed))
	for name := range s.StrategiesUsed {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.StrategiesUsed[names[i]] != s.StrategiesUsed[names[j]] {
			return s.StrategiesUsed[names[i]] > s.StrategiesUsed[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		ew.printf("  %-18s %d\n", name, s.StrategiesUsed[name])
	}

	ew.printf("\nElements healed:\n")
	for _, e := range events {
		ew.printf("  %s  %-24q %-18s %s\n", e.Timestamp.Format(time.RFC3339), e.Purpose, e.StrategyName, e.ResolvedDescription)
	}

	if len(s.Recommendations) > 0 {
		ew.printf("\nRecommendations:\n")
		for _, rec := range s.Recommendations {
			ew.printf("  - %s\n", rec)
		}
	}
	return ew.err
}

// report is the JSON document ToJSON renders.
type report struct {
	Events  []schemas.HealingEvent `json:"events"`
	Summary schemas.HealingSummary `json:"summary"`
}

// ToJSON renders the events and their summary as indented JSON.
func (r *Reporter) ToJSON() ([]byte, error) {
	events := r.Events()
	return json.MarshalIndent(report{Events: events, Summary: summarize(events)}, "", "  ")
}

// errWriter remembers the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
