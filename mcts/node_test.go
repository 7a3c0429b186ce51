package mcts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gozero/engine/board"
)

func TestChildInflateIsIdempotentUnderRacingCallers(t *testing.T) {
	c := &Child{move: board.Move(3)}
	c.prior.Store(0.25)

	first := c.Inflate()
	second := c.Inflate()
	require.Same(t, first, second, "two Inflate calls on the same Child must return the same Node")
	require.Equal(t, board.Move(3), first.Move())
	require.Equal(t, float32(0.25), first.policy.Load())
}

func TestNodeExpandableIsOneShot(t *testing.T) {
	n := &Node{}
	require.True(t, n.Expandable(0))

	require.True(t, n.beginExpand())
	n.commitExpand(nil, 0.5, 0)
	require.False(t, n.Expandable(0), "a node must not be re-expandable once Expanded")
}

func TestAbortExpandAllowsARetry(t *testing.T) {
	n := &Node{}
	require.True(t, n.beginExpand())
	n.abortExpand()
	require.True(t, n.Expandable(0))
	require.True(t, n.beginExpand(), "abortExpand must release the claim for a later attempt")
}

func TestUpdateAccumulatesVisitsAndBlackValueSum(t *testing.T) {
	n := &Node{}
	n.Update(1.0)
	n.Update(0.0)

	require.Equal(t, int32(2), n.Visits())
	require.Equal(t, float64(1.0), n.blackValueSum.Load())
}

func TestValueForFlipsPerspectiveForWhite(t *testing.T) {
	n := &Node{}
	n.Update(1.0) // a single black win

	require.Equal(t, float32(1.0), n.ValueFor(board.Black))
	require.Equal(t, float32(0.0), n.ValueFor(board.White))
}

func TestValueForWithNoVisitsIsEvenOdds(t *testing.T) {
	n := &Node{}
	require.Equal(t, float32(0.5), n.ValueFor(board.Black))
}

func TestVirtualLossShiftsValueForTheVisitingColor(t *testing.T) {
	n := &Node{}
	n.Update(1.0)
	n.ApplyVirtualLoss()

	// visits=1 real + 3 virtual = 4; black sum stays 1 (no virtual credit
	// for black), so black's value drops below the unburdened 1.0.
	require.Less(t, n.ValueFor(board.Black), float32(1.0))
	n.UndoVirtualLoss()
	require.Equal(t, float32(1.0), n.ValueFor(board.Black))
}

func TestAtomicFloat32RoundTrips(t *testing.T) {
	var a atomicFloat32
	a.Store(3.25)
	require.Equal(t, float32(3.25), a.Load())
}

func TestAtomicFloat64AddAccumulates(t *testing.T) {
	var a atomicFloat64
	a.Add(1.5)
	a.Add(2.5)
	require.Equal(t, 4.0, a.Load())
}
