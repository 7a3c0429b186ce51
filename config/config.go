// Package config holds the single immutable configuration value shared by
// the search, the scheduler and the evaluation cache.
//
// The source this module is grounded on (an AlphaZero-style self-play
// engine) builds one mcts.Config and one dual.Config by value and threads
// them into constructors; nothing is ever reconfigured live. leela-zero's
// lz-setoption handler, however, needs to swap settings at runtime without
// taking every in-flight search thread's lock -- an immutable Config plus
// a reader/writer handle doing an atomic pointer swap, which is what
// Handle implements below.
package config

import "sync/atomic"

// TimeManagement mirrors leela-zero's TimeManagement::enabled_t.
type TimeManagement int

const (
	// TimeOff never prunes non-contenders.
	TimeOff TimeManagement = iota
	// TimeOn is the standard pruning/early-exit behavior.
	TimeOn
	// TimeFast additionally skips thinking when no time can be saved.
	TimeFast
	// TimeNoPruning marks pruning decisions but never applies them, for
	// unbiased self-play training data.
	TimeNoPruning
)

// Config is the full set of tunables for one search instance. It is built
// once and never mutated in place; reconfiguration happens by building a
// new Config and swapping it into a Handle.
type Config struct {
	// PUCT exploration constant used by child selection.
	PUCT float32
	// FPUReduction scales the first-play-urgency penalty applied to
	// unvisited children.
	FPUReduction float32
	// LCBMinVisitRatio gates which children are ranked by lower-confidence
	// bound versus raw value in the final move ranking.
	LCBMinVisitRatio float32
	// LCBConfidence is the alpha used for the t-quantile in the LCB
	// computation.
	LCBConfidence float32

	// DirichletEpsilon/Alpha control root exploration noise. Alpha is
	// scaled to board area by the caller (alpha = 0.03 * 361 / N).
	DirichletEpsilon float32
	DirichletAlpha   float32

	// RandomMoveCount/RandomTemperature/RandomMinVisits describe
	// proportional move randomization near the start of a game. No code
	// reads them: mcts.Search never calls RandomizeFirstProportionally.
	RandomMoveCount   int
	RandomTemperature float32
	RandomMinVisits   int

	// MaxTreeNodes bounds tree memory.
	MaxTreeNodes int

	// MaxPlayouts/MaxVisits bound a single move's search; 0 means
	// unlimited.
	MaxPlayouts int
	MaxVisits   int

	// NumSearchThreads is the size of the playout worker pool.
	NumSearchThreads int

	// BatchSize and NumDevices describe the evaluator scheduler's shape.
	// No code reads them; scheduler.New takes its sizes as arguments.
	BatchSize  int
	NumDevices int

	// LagBufferCentis is the safety margin matching leela-zero's
	// cfg_lagbuffer_cs. No code reads this field; the margin that
	// timemgr.Control subtracts is the one passed to timemgr.New.
	LagBufferCentis int

	// TimeManage selects the pruning/early-exit policy.
	TimeManage TimeManagement

	// ResignPercent: -1 means "use the default 10%"; 0 disables
	// resignation outright; a positive value is the raw_eval threshold,
	// as a percent, below which the engine resigns.
	ResignPercent int

	// DumbPass disables the pass-preference post-filters in bestMove
	// (prefer a live alternative over a losing pass; pass out a won or
	// drawn game once the opponent has passed), matching leela-zero's
	// cfg_dumbpass.
	DumbPass bool

	// Pondering names searching on the opponent's clock. No code reads
	// it; mcts.Search searches only inside Think.
	Pondering bool

	// Seed is the base RNG seed; worker RNGs derive from
	// Seed XOR creation-order-index.
	Seed uint64
}

// Default returns the configuration leela-zero ships with out of the box,
// translated into this module's field names. Magic numbers live here and
// nowhere else.
func Default() Config {
	return Config{
		PUCT:              0.8,
		FPUReduction:      0.25,
		LCBMinVisitRatio:  0.10,
		LCBConfidence:     0.05,
		DirichletEpsilon:  0.25,
		DirichletAlpha:    0.03,
		RandomMoveCount:   30,
		RandomTemperature: 1.0,
		RandomMinVisits:   1,
		MaxTreeNodes:      25_000_000,
		MaxPlayouts:       0,
		MaxVisits:         0,
		NumSearchThreads:  2,
		BatchSize:         5,
		NumDevices:        1,
		LagBufferCentis:   100,
		TimeManage:        TimeOn,
		ResignPercent:     -1,
		DumbPass:          false,
		Pondering:         false,
		Seed:              0,
	}
}

// Handle lets many goroutines read a consistent Config snapshot while a
// single writer (e.g. a setoption-style command handler) swaps in a new
// one atomically. The zero Handle is not usable; call NewHandle.
type Handle struct {
	p atomic.Pointer[Config]
}

// NewHandle builds a Handle seeded with cfg.
func NewHandle(cfg Config) *Handle {
	h := &Handle{}
	cp := cfg
	h.p.Store(&cp)
	return h
}

// Load returns the currently active Config. Safe for concurrent use.
func (h *Handle) Load() Config {
	return *h.p.Load()
}

// Store atomically replaces the active Config.
func (h *Handle) Store(cfg Config) {
	cp := cfg
	h.p.Store(&cp)
}
