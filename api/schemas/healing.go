// File: api/schemas/healing.go
package schemas

import "time"

// ExplicitFallbackStrategy is the strategy name recorded when a caller-supplied
// fallback locator, rather than a semantic strategy, resolved the element.
const ExplicitFallbackStrategy = "explicit fallback"

// HealingEvent records one successful non-primary resolution.
type HealingEvent struct {
	ID                  string    `json:"id" yaml:"id"`
	Purpose             string    `json:"purpose" yaml:"purpose"`
	ElementKind         string    `json:"element_kind" yaml:"element_kind"`
	StrategyName        string    `json:"strategy_name" yaml:"strategy_name"`
	ResolvedDescription string    `json:"resolved_description" yaml:"resolved_description"`
	Timestamp           time.Time `json:"timestamp" yaml:"timestamp"`
}

// HealingSummary aggregates the events of a run.
type HealingSummary struct {
	TotalHealed     int                       `json:"total_healed" yaml:"total_healed"`
	StrategiesUsed  map[string]int            `json:"strategies_used" yaml:"strategies_used"`
	ElementsHealed  map[string][]HealingEvent `json:"elements_healed" yaml:"elements_healed"`
	Recommendations []string                  `json:"recommendations" yaml:"recommendations"`
}

// AttemptStatus classifies what a single strategy did during resolution.
type AttemptStatus string

const (
	// AttemptSkipped means the strategy's pattern category was empty.
	AttemptSkipped AttemptStatus = "skipped"
	// AttemptNoMatch means the strategy ran and found no visible candidate.
	AttemptNoMatch AttemptStatus = "no_match"
	// AttemptFailed means the strategy's query failed unexpectedly.
	AttemptFailed AttemptStatus = "failed"
	// AttemptMatched means the strategy produced the accepted element.
	AttemptMatched AttemptStatus = "matched"
)

// StrategyAttempt is the diagnostic trace entry for one strategy.
type StrategyAttempt struct {
	Strategy string        `json:"strategy" yaml:"strategy"`
	Status   AttemptStatus `json:"status" yaml:"status"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}
