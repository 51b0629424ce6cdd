// Package timetable builds weekly class timetables with a deterministic
// first-fit heuristic. A run never backtracks and holds no state between
// calls: the same input always yields the same grid and residual report.
package timetable

import (
	"go.uber.org/zap"
)

// Engine runs generation. The zero value is not usable; call New.
type Engine struct {
	logger          *zap.Logger
	defaultStrategy Strategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger used for run summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaultStrategy sets the strategy used when Input.Strategy is empty.
func WithDefaultStrategy(strategy Strategy) Option {
	return func(e *Engine) {
		if strategy.Valid() {
			e.defaultStrategy = strategy
		}
	}
}

// New constructs an engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop(), defaultStrategy: StrategySkipOnConflict}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate places every link of the input into a fresh grid. The input must
// have passed Validate.
func (e *Engine) Generate(in Input) Result {
	strategy := in.Strategy
	if strategy == "" {
		strategy = e.defaultStrategy
	}

	days := CanonicalDays(in.Week.Days)
	links := OrderLinks(in.Links)
	grid := NewGrid(in.Week, in.Classes)
	ledger := NewLedger()
	allocs := newAllocations(links)

	switch strategy {
	case StrategyFlagOnConflict:
		allocs = PlaceFlagging(grid, ledger, in.Week, days, allocs)
	default:
		allocs = PlaceDoubles(grid, ledger, in.Week, days, allocs)
		allocs = PlaceSingles(grid, ledger, in.Week, days, allocs)
	}

	result := Result{
		Strategy:    strategy,
		Week:        in.Week,
		Grid:        grid,
		Allocations: allocs,
		Residuals:   Residuals(allocs),
		Ledger:      ledger,
	}

	e.logger.Debug("timetable generated",
		zap.String("strategy", string(strategy)),
		zap.Int("classes", len(in.Classes)),
		zap.Int("links", len(links)),
		zap.Int("placed", result.Placed()),
		zap.Int("unplaced", result.Unplaced()),
		zap.Int("conflicts", grid.Count(CellConflict)),
	)
	for _, res := range result.Residuals {
		e.logger.Debug("timetable residual",
			zap.String("class", res.Class),
			zap.String("subject", res.Subject),
			zap.String("teacher", res.Teacher),
			zap.Int("residual", res.Residual),
		)
	}

	return result
}

// Generate runs a default engine.
func Generate(in Input) Result {
	return New().Generate(in)
}
