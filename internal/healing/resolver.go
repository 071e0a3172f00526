// internal/healing/resolver.go
// Package healing finds elements whose primary locator stopped matching. A
// Resolver walks a fixed, priority-ordered chain of semantic strategies
// derived from an element descriptor, and a Reporter collects what healed.
package healing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-heal/api/schemas"
	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/element"
)

const (
	// DefaultProbeTimeout bounds the visibility check of one candidate.
	DefaultProbeTimeout = 1500 * time.Millisecond
	// DefaultAmbiguityThreshold is the role-match count at which the pure
	// role strategy rejects. Tunable through WithAmbiguityThreshold.
	DefaultAmbiguityThreshold = 10
)

// Outcome is the result of one run of the strategy chain.
type Outcome struct {
	Success bool
	// Handle is the accepted element set; nil unless Success.
	Handle driver.Elements
	// StrategyName is the winning strategy; empty unless Success.
	StrategyName string
	// StrategiesAttempted lists every strategy reached, in canonical order,
	// including skipped ones.
	StrategiesAttempted []string
	// Attempts carries the per-strategy diagnostics behind StrategiesAttempted.
	Attempts []schemas.StrategyAttempt
	// Description is a human-readable summary of the accepted element.
	Description  string
	ErrorMessage string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithProbeTimeout sets how long a candidate may take to become visible.
func WithProbeTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithAmbiguityThreshold sets the role-match count at which the pure role
// strategy gives up. Values below 2 are ignored.
func WithAmbiguityThreshold(n int) ResolverOption {
	return func(r *Resolver) {
		if n >= 2 {
			r.ambiguityThreshold = n
		}
	}
}

// WithResolverLogger sets the logger strategy diagnostics go to.
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver runs the strategy chain. It holds no per-resolution state and is
// safe for concurrent use across pages.
type Resolver struct {
	logger             *zap.Logger
	probeTimeout       time.Duration
	ambiguityThreshold int
	strategies         []strategy
}

// NewResolver builds a Resolver with the canonical strategy chain.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		logger:             zap.NewNop(),
		probeTimeout:       DefaultProbeTimeout,
		ambiguityThreshold: DefaultAmbiguityThreshold,
		strategies:         chain(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("resolver")
	return r
}

// Strategies returns the strategy names in priority order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.name
	}
	return names
}

// ProbeTimeout reports the per-candidate visibility window.
func (r *Resolver) ProbeTimeout() time.Duration { return r.probeTimeout }

// Heal tries each strategy in order and accepts the first whose query matches
// at least one element with a visible first match. Strategy failures,
// including panics, are recorded and the chain continues. Heal never returns
// an error; a failed resolution is an Outcome with Success false.
func (r *Resolver) Heal(ctx context.Context, d *element.Descriptor, page driver.Page) Outcome {
	if d == nil || page == nil {
		return Outcome{ErrorMessage: "healing requires a descriptor and a page"}
	}

	req := request{
		page:      page,
		desc:      d,
		accept:    func(ctx context.Context, el driver.Elements) (bool, error) { return Probe(ctx, el, r.probeTimeout) },
		ambiguity: r.ambiguityThreshold,
	}
	out := Outcome{}
	log := r.logger.With(zap.String("purpose", d.Purpose()))

	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			out.ErrorMessage = fmt.Sprintf("healing %q interrupted after %d strategies: %v", d.Purpose(), len(out.StrategiesAttempted), err)
			return out
		}
		out.StrategiesAttempted = append(out.StrategiesAttempted, s.name)

		c, err := r.run(ctx, s, req)
		attempt := schemas.StrategyAttempt{Strategy: s.name}
		switch {
		case err == nil:
			attempt.Status = schemas.AttemptMatched
			attempt.Detail = c.Detail
			out.Attempts = append(out.Attempts, attempt)
			out.Success = true
			out.Handle = c.Handle
			out.StrategyName = s.name
			out.Description = Describe(ctx, c.Handle)
			log.Debug("Strategy matched.", zap.String("strategy", s.name), zap.String("detail", c.Detail))
			return out
		case errors.Is(err, ErrStrategySkipped):
			attempt.Status = schemas.AttemptSkipped
			log.Debug("Strategy skipped.", zap.String("strategy", s.name))
		case errors.Is(err, ErrNoCandidate):
			attempt.Status = schemas.AttemptNoMatch
			if msg := err.Error(); msg != ErrNoCandidate.Error() {
				attempt.Detail = msg
			}
			log.Debug("Strategy found no candidate.", zap.String("strategy", s.name), zap.Error(err))
		default:
			attempt.Status = schemas.AttemptFailed
			attempt.Error = err.Error()
			log.Debug("Strategy failed.", zap.String("strategy", s.name), zap.Error(err))
		}
		out.Attempts = append(out.Attempts, attempt)
	}

	out.ErrorMessage = fmt.Sprintf("no strategy resolved %q (attempted: %s)", d.Purpose(), strings.Join(out.StrategiesAttempted, ", "))
	return out
}

// run executes one strategy, converting a panic into an error.
func (r *Resolver) run(ctx context.Context, s strategy, req request) (c Candidate, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.name, p)
		}
	}()
	return s.resolve(ctx, req)
}

// Probe reports whether el matches at least one element whose first match is
// visible within timeout. A probe that runs out of time is a plain "no"; a
// cancelled parent context is returned as an error.
func Probe(ctx context.Context, el driver.Elements, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := el.Count(pctx)
	if err != nil {
		return false, probeError(ctx, err)
	}
	if n == 0 {
		return false, nil
	}
	err = el.First().WaitFor(pctx, driver.StateVisible)
	if err == nil {
		return true, nil
	}
	return false, probeError(ctx, err)
}

// probeError separates "not visible in time" from real failures.
func probeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrDetached) || errors.Is(err, driver.ErrNotFound) {
		return nil
	}
	return err
}

// Describe summarises the first element of el as tag, id and leading text,
// followed by the query that found it. Introspection failures fall back to the
// query alone.
func Describe(ctx context.Context, el driver.Elements) string {
	if el == nil {
		return ""
	}
	first := el.First()
	tag, err := first.TagName(ctx)
	if err != nil || tag == "" {
		return el.String()
	}
	var b strings.Builder
	b.WriteString(tag)
	if id, ok, err := first.GetAttribute(ctx, "id"); err == nil && ok && id != "" {
		b.WriteString("#" + id)
	}
	if text, err := first.TextContent(ctx); err == nil {
		if text = strings.Join(strings.Fields(text), " "); text != "" {
			const maxText = 40
			if r := []rune(text); len(r) > maxText {
				text = string(r[:maxText]) + "..."
			}
			fmt.Fprintf(&b, " %q", text)
		}
	}
	fmt.Fprintf(&b, " (%s)", el)
	return b.String()
}
