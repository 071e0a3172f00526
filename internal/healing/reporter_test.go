// internal/healing/reporter_test.go
package healing

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/scalpel-heal/api/schemas"
)

func event(purpose, strategy string) schemas.HealingEvent {
	return schemas.HealingEvent{Purpose: purpose, ElementKind: "button", StrategyName: strategy, ResolvedDescription: "button \"" + purpose + "\""}
}

func TestReporter_AddEventFillsIdentity(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewReporter(zap.NewNop(), WithClock(func() time.Time { return fixed }))

	r.AddEvent(event("Submit Button", StrategyText))
	preset := event("Other", StrategyLabel)
	preset.ID = "evt-1"
	preset.Timestamp = fixed.Add(-time.Hour)
	r.AddEvent(preset)

	events := r.Events()
	require.Len(t, events, 2)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "evt-1", events[1].ID)
	assert.Equal(t, fixed.Add(-time.Hour), events[1].Timestamp)

	events[0].Purpose = "mutated"
	assert.Equal(t, "Submit Button", r.Events()[0].Purpose, "Events returns a copy")
}

func TestReporter_Disabled(t *testing.T) {
	r := NewReporter(nil)
	assert.True(t, r.Enabled())
	r.SetEnabled(false)
	r.AddEvent(event("Submit Button", StrategyText))
	assert.Zero(t, r.Len())

	r.SetEnabled(true)
	r.AddEvent(event("Submit Button", StrategyText))
	assert.Equal(t, 1, r.Len())

	r.Clear()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Events())
}

func TestReporter_Summarize(t *testing.T) {
	r := NewReporter(nil)
	r.AddEvent(event("Submit Button", StrategyText))
	r.AddEvent(event("Email Field", StrategyLabel))
	r.AddEvent(event("Submit Button", StrategyText))
	r.AddEvent(event("Submit Button", StrategyRoleWithText))

	s := r.Summarize()
	assert.Equal(t, 4, s.TotalHealed)
	require.Len(t, s.ElementsHealed["Submit Button"], 3)
	require.Len(t, s.ElementsHealed["Email Field"], 1)

	want := map[string]int{StrategyText: 2, StrategyLabel: 1, StrategyRoleWithText: 1}
	if diff := cmp.Diff(want, s.StrategiesUsed); diff != "" {
		t.Errorf("strategies used mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, s.Recommendations, 1, "only purposes healed twice or more are flagged")
	assert.Contains(t, s.Recommendations[0], `"Submit Button"`)
	assert.Contains(t, s.Recommendations[0], `via "text"`)
}

func TestReporter_SummarizeTiesAndOrder(t *testing.T) {
	r := NewReporter(nil)
	r.AddEvent(event("B", StrategyPlaceholder))
	r.AddEvent(event("A", StrategyTitle))
	r.AddEvent(event("A", StrategyAltText))
	r.AddEvent(event("B", StrategyTestID))
	r.AddEvent(event("B", schemas.ExplicitFallbackStrategy))
	r.AddEvent(event("B", schemas.ExplicitFallbackStrategy))

	s := r.Summarize()
	require.Len(t, s.Recommendations, 2)
	// B was healed first, so its recommendation comes first.
	assert.Contains(t, s.Recommendations[0], `"B"`)
	assert.Contains(t, s.Recommendations[0], "explicit fallback")
	// A's strategies tie; the first seen wins.
	assert.Contains(t, s.Recommendations[1], `via "title"`)
}

func TestReporter_EmptySummary(t *testing.T) {
	s := NewReporter(nil).Summarize()
	want := schemas.HealingSummary{
		StrategiesUsed:  map[string]int{},
		ElementsHealed:  map[string][]schemas.HealingEvent{},
		Recommendations: []string{},
	}
	assert.Empty(t, cmp.Diff(want, s))
}

func TestReporter_SinksAreBestEffort(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	var got []string
	r := NewReporter(zap.New(core),
		WithSink(SinkFunc(func(schemas.HealingEvent) error { return errors.New("sink offline") })),
		WithSink(SinkFunc(func(schemas.HealingEvent) error { panic("sink bug") })),
		WithSink(SinkFunc(func(e schemas.HealingEvent) error { got = append(got, e.Purpose); return nil })),
	)

	assert.NotPanics(t, func() { r.AddEvent(event("Submit Button", StrategyText)) })
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"Submit Button"}, got, "later sinks still run")
	assert.Equal(t, 1, logs.FilterMessage("Healing sink failed.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Healing sink panicked.").Len())
}

func TestReporter_LogsNotice(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := NewReporter(zap.New(core))
	r.AddEvent(event("Submit Button", StrategyText))

	entries := logs.FilterMessage("Element healed.").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Submit Button", fields["purpose"])
	assert.Equal(t, StrategyText, fields["strategy"])
}

func TestReporter_ConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewReporter(nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.AddEvent(event("Submit Button", StrategyText))
				_ = r.Summarize()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, r.Len())
	assert.Equal(t, 400, r.Summarize().StrategiesUsed[StrategyText])
}

func TestReporter_PrintReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(nil)
	require.NoError(t, r.PrintReport(&buf))
	assert.Contains(t, buf.String(), "No elements required healing.")

	buf.Reset()
	r.AddEvent(event("Submit Button", StrategyText))
	r.AddEvent(event("Submit Button", StrategyText))
	require.NoError(t, r.PrintReport(&buf))
	out := buf.String()
	assert.Contains(t, out, "Total healed: 2")
	assert.Contains(t, out, "text")
	assert.Contains(t, out, "Recommendations:")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestReporter_PrintReportWriteError(t *testing.T) {
	r := NewReporter(nil)
	r.AddEvent(event("Submit Button", StrategyText))
	assert.EqualError(t, r.PrintReport(failingWriter{}), "disk full")
}

func TestReporter_ToJSON(t *testing.T) {
	r := NewReporter(nil)
	r.AddEvent(event("Submit Button", StrategyText))
	r.AddEvent(event("Submit Button", StrategyRoleWithText))

	data, err := r.ToJSON()
	require.NoError(t, err)

	var decoded report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Events, 2)
	assert.Equal(t, 2, decoded.Summary.TotalHealed)
	if diff := cmp.Diff(r.Events(), decoded.Events, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestReporterContext(t *testing.T) {
	assert.Nil(t, ReporterFromContext(context.Background()))
	r := NewReporter(nil)
	ctx := WithReporter(context.Background(), r)
	assert.Same(t, r, ReporterFromContext(ctx))
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewMetricsSink(reg)
	require.NoError(t, err)

	r := NewReporter(nil, WithSink(sink))
	r.AddEvent(event("Submit Button", StrategyText))
	r.AddEvent(event("Submit Button", StrategyText))
	r.AddEvent(event("Logo", StrategyAltText))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.events.WithLabelValues(StrategyText, "button")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues(StrategyAltText, "button")))

	again, err := NewMetricsSink(reg)
	require.NoError(t, err)
	assert.Same(t, sink.events, again.events, "second registration reuses the collector")
}

func TestResolutionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewResolutionMetrics(reg)
	m.Observe(ResultPrimary)
	m.Observe(ResultHealed)
	m.Observe(ResultHealed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues(ResultHealed)))
	count, err := testutil.GatherAndCount(reg, "scalpel_heal_resolutions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var nilMetrics *ResolutionMetrics
	assert.NotPanics(t, func() { nilMetrics.Observe(ResultFailed) })
}
