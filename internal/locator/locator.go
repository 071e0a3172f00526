// internal/locator/locator.go
// Package locator implements the resilient locator: a primary locating
// expression backed by explicit fallbacks and, when those stop matching, the
// semantic healing chain of an element descriptor.
package locator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-heal/api/schemas"
	"github.com/xkilldash9x/scalpel-heal/internal/config"
	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/element"
	"github.com/xkilldash9x/scalpel-heal/internal/healing"
	"github.com/xkilldash9x/scalpel-heal/internal/retry"
)

const (
	DefaultTimeout            = 10 * time.Second
	DefaultMaxHealingAttempts = 5
)

// Option configures a Locator.
type Option func(*Locator)

// WithFallbacks appends explicit fallback locating expressions, tried in order
// after the primary.
func WithFallbacks(selectors ...string) Option {
	return func(l *Locator) {
		for _, s := range selectors {
			if s != "" {
				l.fallbacks = append(l.fallbacks, s)
			}
		}
	}
}

// WithTimeout bounds each action and expectation.
func WithTimeout(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithProbeTimeout bounds the visibility probe of the primary and fallback
// locators, and of healing candidates when the resolver is built internally.
func WithProbeTimeout(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.probeTimeout = d
		}
	}
}

// WithHealing enables or disables the strategy chain.
func WithHealing(enabled bool) Option {
	return func(l *Locator) { l.enableHealing = enabled }
}

// WithMaxHealingAttempts bounds how many strategy-chain runs may fail for this
// locator. Successful healing does not count against it.
func WithMaxHealingAttempts(n int) Option {
	return func(l *Locator) {
		if n > 0 {
			l.maxHealingAttempts = n
		}
	}
}

// WithLogHealing controls whether fallback and healing resolutions are
// recorded in the reporter.
func WithLogHealing(enabled bool) Option {
	return func(l *Locator) { l.logHealing = enabled }
}

// WithReporter sets the reporter healing events go to. Without one the
// reporter stored in the call's context is used, if any.
func WithReporter(r *healing.Reporter) Option {
	return func(l *Locator) { l.reporter = r }
}

// WithResolver shares a resolver between locators.
func WithResolver(r *healing.Resolver) Option {
	return func(l *Locator) { l.resolver = r }
}

// WithRetry sets the backoff policy of the action wrappers returned by Actions.
func WithRetry(opts retry.Options) Option {
	return func(l *Locator) { l.retry = opts }
}

// WithMetrics counts resolution results.
func WithMetrics(m *healing.ResolutionMetrics) Option {
	return func(l *Locator) { l.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// FromConfig applies the locator section of the configuration.
func FromConfig(cfg config.LocatorConfig) Option {
	return func(l *Locator) {
		WithTimeout(cfg.Timeout)(l)
		WithProbeTimeout(cfg.ProbeTimeout)(l)
		WithMaxHealingAttempts(cfg.MaxHealingAttempts)(l)
		l.enableHealing = cfg.EnableHealing
		l.logHealing = cfg.LogHealing
		if cfg.AmbiguityThreshold > 0 {
			l.ambiguityThreshold = cfg.AmbiguityThreshold
		}
	}
}

// Locator resolves one logical element on one page. It is meant to be driven
// by a single caller at a time; its provenance state is still guarded so that
// reads from other goroutines are safe.
type Locator struct {
	page      driver.Page
	primary   string
	fallbacks []string
	desc      *element.Descriptor

	timeout            time.Duration
	probeTimeout       time.Duration
	enableHealing      bool
	maxHealingAttempts int
	logHealing         bool
	ambiguityThreshold int

	retry    retry.Options
	reporter *healing.Reporter
	resolver *healing.Resolver
	metrics  *healing.ResolutionMetrics
	logger   *zap.Logger

	mu          sync.Mutex
	healed      bool
	strategy    string
	healingRuns int
	failedRuns  int
	last        *healing.Outcome
}

// New builds a locator for desc on page. primary may be empty, in which case
// resolution starts with the fallbacks.
func New(page driver.Page, primary string, desc *element.Descriptor, opts ...Option) (*Locator, error) {
	if page == nil {
		return nil, errors.New("locator: page is required")
	}
	if desc == nil {
		return nil, errors.New("locator: descriptor is required")
	}
	l := &Locator{
		page:               page,
		primary:            primary,
		desc:               desc,
		timeout:            DefaultTimeout,
		probeTimeout:       healing.DefaultProbeTimeout,
		enableHealing:      true,
		maxHealingAttempts: DefaultMaxHealingAttempts,
		logHealing:         true,
		ambiguityThreshold: healing.DefaultAmbiguityThreshold,
		logger:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	base := l.logger.Named("locator")
	l.logger = base.With(zap.String("purpose", desc.Purpose()))
	if l.resolver == nil {
		// The resolver scopes its own lines by purpose.
		l.resolver = healing.NewResolver(
			healing.WithProbeTimeout(l.probeTimeout),
			healing.WithAmbiguityThreshold(l.ambiguityThreshold),
			healing.WithResolverLogger(base),
		)
	}
	return l, nil
}

// MustNew is like New but panics on error.
func MustNew(page driver.Page, primary string, desc *element.Descriptor, opts ...Option) *Locator {
	l, err := New(page, primary, desc, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Locator) Descriptor() *element.Descriptor { return l.desc }
func (l *Locator) Primary() string                 { return l.primary }
func (l *Locator) String() string                  { return l.desc.Purpose() }

// Resolve returns a handle to the element: the primary locator if it matches a
// visible element, else the first matching fallback, else the healing chain.
// The handle is narrowed to the first match, the element that was probed.
// Fallback and healing resolutions are recorded as healing events.
func (l *Locator) Resolve(ctx context.Context) (driver.Elements, error) {
	var probed []string

	if l.primary != "" {
		el := l.page.QuerySelector(l.primary)
		ok, err := l.probe(ctx, el)
		if err != nil {
			return nil, err
		}
		if ok {
			l.setProvenance(false, "")
			l.metrics.Observe(healing.ResultPrimary)
			return el.First(), nil
		}
		probed = append(probed, l.primary)
	}

	for _, fb := range l.fallbacks {
		el := l.page.QuerySelector(fb)
		ok, err := l.probe(ctx, el)
		if err != nil {
			return nil, err
		}
		if ok {
			el = el.First()
			l.setProvenance(true, schemas.ExplicitFallbackStrategy)
			l.metrics.Observe(healing.ResultFallback)
			l.logger.Info("Primary locator missed, explicit fallback matched.", zap.String("fallback", fb))
			l.record(ctx, schemas.ExplicitFallbackStrategy, el)
			return el, nil
		}
		probed = append(probed, fb)
	}

	if !l.enableHealing {
		return nil, l.fail(&ResolutionError{Purpose: l.desc.Purpose(), Locators: probed, Reason: ReasonDisabled})
	}
	if !l.canHeal() {
		return nil, l.fail(&ResolutionError{Purpose: l.desc.Purpose(), Locators: probed, Reason: ReasonBudget})
	}

	out := l.resolver.Heal(ctx, l.desc, l.page)
	l.mu.Lock()
	l.last = &out
	l.healingRuns++
	if !out.Success {
		l.failedRuns++
	}
	l.mu.Unlock()

	if !out.Success {
		return nil, l.fail(&ResolutionError{
			Purpose:   l.desc.Purpose(),
			Locators:  probed,
			Attempted: out.StrategiesAttempted,
			Reason:    ReasonExhausted,
			Err:       ctx.Err(),
		})
	}
	l.setProvenance(true, out.StrategyName)
	l.metrics.Observe(healing.ResultHealed)
	l.logger.Info("Element healed.", zap.String("strategy", out.StrategyName), zap.String("resolved", out.Description))
	l.record(ctx, out.StrategyName, out.Handle)
	return out.Handle, nil
}

// probe checks one locating expression. Only a cancelled context is an error;
// a driver failure counts as a miss.
func (l *Locator) probe(ctx context.Context, el driver.Elements) (bool, error) {
	ok, err := healing.Probe(ctx, el, l.probeTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		l.logger.Debug("Locator probe failed.", zap.String("locator", el.String()), zap.Error(err))
		return false, nil
	}
	return ok, nil
}

func (l *Locator) fail(err *ResolutionError) error {
	l.metrics.Observe(healing.ResultFailed)
	l.logger.Warn("Element resolution failed.", zap.String("reason", string(err.Reason)), zap.Strings("attempted", err.Attempted))
	return err
}

func (l *Locator) canHeal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failedRuns < l.maxHealingAttempts
}

func (l *Locator) setProvenance(healed bool, strategy string) {
	l.mu.Lock()
	l.healed = healed
	l.strategy = strategy
	l.mu.Unlock()
}

// record appends a healing event. Reporting is best-effort and never fails the
// resolution.
func (l *Locator) record(ctx context.Context, strategy string, el driver.Elements) {
	if !l.logHealing {
		return
	}
	r := l.reporter
	if r == nil {
		r = healing.ReporterFromContext(ctx)
	}
	if r == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			l.logger.Warn("Recording healing event panicked.", zap.Any("panic", p))
		}
	}()
	r.AddEvent(schemas.HealingEvent{
		Purpose:             l.desc.Purpose(),
		ElementKind:         l.desc.Kind().String(),
		StrategyName:        strategy,
		ResolvedDescription: healing.Describe(ctx, el),
	})
}

// WasHealed reports whether the last successful resolution used anything
// other than the primary locator.
func (l *Locator) WasHealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.healed
}

// HealingStrategy returns the strategy of the last healed resolution.
func (l *Locator) HealingStrategy() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.strategy, l.healed
}

// LastOutcome returns the outcome of the most recent strategy-chain run.
func (l *Locator) LastOutcome() (healing.Outcome, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return healing.Outcome{}, false
	}
	return *l.last, true
}

// HealingRuns is how many times the strategy chain has run for this locator.
func (l *Locator) HealingRuns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.healingRuns
}

func (l *Locator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.timeout)
}

