package mcts

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gozero/engine/board"
)

// EvalVariance returns the Welford running variance backing LCBFor,
// exposed on its own for analysis/debug output. Returns 0 for a node
// with fewer than 2 visits, matching LCBFor's own fallback threshold.
func (n *Node) EvalVariance() float64 {
	n.statsMu.Lock()
	count := n.welCount
	m2 := n.welM2
	n.statsMu.Unlock()
	if count < 2 {
		return 0
	}
	v := m2 / float64(count-1)
	if v < 0 {
		return 0
	}
	return v
}

// LCBFor computes the lower confidence bound on a node's value for
// color: for nodes with fewer than 2 visits it falls back to RawEval,
// since a variance estimate needs at least two samples.
func (n *Node) LCBFor(color board.Color, confidence float32) float32 {
	n.statsMu.Lock()
	count := n.welCount
	mean := n.welMean
	m2 := n.welM2
	n.statsMu.Unlock()

	if count < 2 {
		return n.RawEval(color)
	}

	variance := m2 / float64(count-1)
	if variance < 0 {
		variance = 0
	}

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(count - 1)}
	quantile := t.Quantile(1 - float64(confidence))

	stderr := quantile * math.Sqrt(variance/float64(count))
	if color == board.White {
		return float32((1 - mean) - stderr)
	}
	return float32(mean - stderr)
}

// SortChildren orders a node's children by: (a) those with visits >=
// minVisitFloor, ranked by LCBFor descending; then (b) remaining active
// children by raw eval descending; then (c) pruned/invalid last. The
// sort is stable, so repeated calls with unchanged statistics are
// idempotent.
func SortChildren(children []*Child, color board.Color, minVisitFloor int32, confidence float32) {
	rank := func(c *Child) (tier int, key float32) {
		n := c.ptr.Load()
		if n == nil {
			return 2, c.Prior()
		}
		switch n.Status() {
		case Pruned, InvalidStatus:
			return 2, n.RawEval(color)
		}
		if n.Visits() >= minVisitFloor {
			return 0, n.LCBFor(color, confidence)
		}
		return 1, n.RawEval(color)
	}

	sort.SliceStable(children, func(i, j int) bool {
		ti, ki := rank(children[i])
		tj, kj := rank(children[j])
		if ti != tj {
			return ti < tj
		}
		return ki > kj
	})
}
