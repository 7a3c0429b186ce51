// Package mcts implements the tree node, PUCT selection, virtual loss,
// LCB-based move ranking and the per-playout search loop.
//
// The child-slot representation follows design note §9's sanctioned
// alternative to raw pointer-tagging: instead of packing an inflated bit
// into a 64-bit word, each Child holds its (move, prior) pair directly
// plus an atomic.Pointer[Node] that starts nil ("uninflated") and is
// installed exactly once via CompareAndSwap ("inflated"). This keeps the
// same cost profile -- an unvisited child is a small (move, prior,
// pointer) struct with no Node allocated -- without resorting to unsafe pointer tagging, which
// Go's generic atomic.Pointer already rules out needing.
//
// Elvenson-alphabeth/mcts/node.go guards its per-node mutable state with
// a single sync.Mutex (Node.lock); this module keeps that mutex for the
// low-frequency Welford variance bookkeeping in Update, but moves the
// hot-path counters (visits, virtual loss, black value sum) to lock-free
// atomics so concurrent descents never block each other outside of
// expansion.
package mcts

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/gozero/engine/board"
)

// ExpandState is the node's expansion lifecycle state.
type ExpandState int32

const (
	Initial ExpandState = iota
	Expanding
	Expanded
)

// NodeStatus marks whether a node participates in selection.
type NodeStatus int32

const (
	Active NodeStatus = iota
	Pruned
	InvalidStatus
)

// Child is one slot in a node's child list: always carries its (move,
// prior) pair, and may additionally own an inflated *Node once visited.
type Child struct {
	move  board.Move
	prior atomicFloat32

	ptr atomic.Pointer[Node]
}

// Move returns the child's move.
func (c *Child) Move() board.Move { return c.move }

// Prior returns the child's current prior (root noise may have mutated it).
func (c *Child) Prior() float32 { return c.prior.Load() }

// Inflated reports whether this child already owns a Node.
func (c *Child) Inflated() bool { return c.ptr.Load() != nil }

// Inflate returns this child's Node, creating it on first call. Racing
// callers that lose the CompareAndSwap discard their candidate; the
// first winner's Node is shared by all.
func (c *Child) Inflate() *Node {
	if n := c.ptr.Load(); n != nil {
		return n
	}
	candidate := &Node{move: c.move, status: int32(Active)}
	candidate.policy.Store(c.prior.Load())
	if c.ptr.CompareAndSwap(nil, candidate) {
		return candidate
	}
	return c.ptr.Load()
}

// Node is the fundamental MCTS datum.
type Node struct {
	move board.Move

	// policy is this node's prior, f32 stored atomically so root noise
	// mixing can mutate it without a lock.
	policy atomicFloat32

	visits      atomic.Int32
	virtualLoss atomic.Int32

	// netValue is this node's own NN value (black POV), written once
	// during create_children before expandState flips to Expanded; the
	// CAS release/acquire pair makes that write visible to every reader
	// that subsequently observes Expanded.
	netValue float32

	blackValueSum atomicFloat64

	status      atomic.Int32 // NodeStatus
	expandState atomic.Int32 // ExpandState

	// minPsaRatioChildren records how aggressively children were pruned
	// at the create_children call that expanded this node. Expansion is
	// one-shot, so no later call adds children.
	minPsaRatioChildren atomicFloat32

	// statsMu guards the Welford running-variance accumulators used by
	// lcb_for. These update once per backed-up playout, never on the hot
	// selection path, so a mutex here costs nothing material.
	statsMu  sync.Mutex
	welMean  float64
	welM2    float64
	welCount int64

	childrenMu sync.Mutex // not locked anywhere; children is published via the expandState CAS
	children   []*Child
}

// Move returns the move that led to this node.
func (n *Node) Move() board.Move { return n.move }

// Status returns the node's current status.
func (n *Node) Status() NodeStatus { return NodeStatus(n.status.Load()) }

// SetStatus sets the node's status.
func (n *Node) SetStatus(s NodeStatus) { n.status.Store(int32(s)) }

// Visits returns the node's visit count.
func (n *Node) Visits() int32 { return n.visits.Load() }

// VirtualLoss returns the node's current virtual loss debit.
func (n *Node) VirtualLoss() int32 { return n.virtualLoss.Load() }

// NetValue returns this node's own NN value (black POV).
func (n *Node) NetValue() float32 { return n.netValue }

// Children returns the node's child slots. Only valid once ExpandState()
// is Expanded. The slice is not reallocated after that point, but its
// order can change: bestMove/PV sort it in place via SortChildren and
// RandomizeFirstProportionally swaps entries, all outside the playout
// workers.
func (n *Node) Children() []*Child { return n.children }

// ExpandState returns the node's current expansion lifecycle state.
func (n *Node) ExpandState() ExpandState { return ExpandState(n.expandState.Load()) }

// HasChildren reports whether the node has completed expansion.
func (n *Node) HasChildren() bool { return n.ExpandState() == Expanded }

// Expandable reports whether this node has not yet been expanded.
// Expansion is one-shot: once Expanded, a node's child set is fixed for
// its lifetime. minPsaRatioChildren is still recorded at expansion time
// and exposed via MinPsaRatioChildren so callers can reason about how
// aggressively this node's children were pruned, but this module does
// not implement leela-zero's progressive re-widening of an
// already-expanded node under relaxed memory pressure -- only
// newly-created nodes see the current (looser or tighter) ratio.
func (n *Node) Expandable(requestedMinRatio float32) bool {
	return n.ExpandState() == Initial
}

// MinPsaRatioChildren returns the min_psa_ratio this node was expanded
// with.
func (n *Node) MinPsaRatioChildren() float32 { return n.minPsaRatioChildren.Load() }

// beginExpand attempts to claim expansion via CAS Initial -> Expanding.
func (n *Node) beginExpand() bool {
	return n.expandState.CompareAndSwap(int32(Initial), int32(Expanding))
}

// commitExpand installs the children slice and publishes Expanded.
func (n *Node) commitExpand(children []*Child, netValue float32, minPsaRatio float32) {
	n.netValue = netValue
	n.children = children
	n.minPsaRatioChildren.Store(minPsaRatio)
	n.expandState.Store(int32(Expanded))
}

// abortExpand reverts a failed expansion attempt back to Initial so a
// later call may retry.
func (n *Node) abortExpand() {
	n.expandState.Store(int32(Initial))
}

// Update folds one backed-up playout result (black POV) into this node's
// statistics: visits += 1, black_value_sum += value, plus the Welford
// running mean/variance used by lcb_for.
func (n *Node) Update(valueBlackPOV float32) {
	n.blackValueSum.Add(float64(valueBlackPOV))
	n.visits.Add(1)

	n.statsMu.Lock()
	n.welCount++
	delta := float64(valueBlackPOV) - n.welMean
	n.welMean += delta / float64(n.welCount)
	delta2 := float64(valueBlackPOV) - n.welMean
	n.welM2 += delta * delta2
	n.statsMu.Unlock()
}

// ApplyVirtualLoss adds the virtual loss debit (+3, matching leela-zero).
func (n *Node) ApplyVirtualLoss() { n.virtualLoss.Add(VirtualLossAmount) }

// UndoVirtualLoss removes the virtual loss debit.
func (n *Node) UndoVirtualLoss() { n.virtualLoss.Add(-VirtualLossAmount) }

// VirtualLossAmount is the per-descent virtual loss debit/credit.
const VirtualLossAmount = 3

// ValueFor returns this node's current estimated value from color's
// point of view, including the effect of any outstanding virtual loss.
func (n *Node) ValueFor(color board.Color) float32 {
	visits := float64(n.visits.Load() + n.virtualLoss.Load())
	if visits <= 0 {
		return 0.5
	}
	blackSum := n.blackValueSum.Load()
	if color == board.White {
		blackSum += float64(n.virtualLoss.Load())
	}
	mean := blackSum / visits
	if color == board.White {
		return float32(1 - mean)
	}
	return float32(mean)
}

// RawEval returns the node's raw mean value (no virtual loss) from
// color's point of view, used by resignation and LCB-floor comparisons.
func (n *Node) RawEval(color board.Color) float32 {
	v := n.visits.Load()
	if v <= 0 {
		return float32(0.5)
	}
	mean := n.blackValueSum.Load() / float64(v)
	if color == board.White {
		return float32(1 - mean)
	}
	return float32(mean)
}

// atomicFloat32 stores a float32 atomically via its bit pattern.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (a *atomicFloat32) Load() float32 {
	return math32.Float32frombits(a.bits.Load())
}

func (a *atomicFloat32) Store(v float32) {
	a.bits.Store(math32.Float32bits(v))
}

// atomicFloat64 stores a float64 atomically via its bit pattern, with a
// compare-and-swap loop for Add -- the "atomic double" design note §9's
// recommended approach when the platform lacks a native atomic add.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		oldF := math.Float64frombits(old)
		newF := oldF + delta
		if a.bits.CompareAndSwap(old, math.Float64bits(newF)) {
			return
		}
	}
}
