package mcts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gozero/engine/board"
)

func TestMinPsaRatioFollowsTheMemoryPressureCurve(t *testing.T) {
	tr := NewTree(board.NewGoBoard(5, 0, 1), 100)

	require.Equal(t, float32(0), tr.MinPsaRatio())

	tr.NoteNodesCreated(48) // 49/100 including the root, still under the 0.50 threshold
	require.Equal(t, float32(0), tr.MinPsaRatio())

	tr.NoteNodesCreated(1) // now exactly 50/100
	require.Equal(t, float32(0.001), tr.MinPsaRatio())

	tr.NoteNodesCreated(45) // 95/100
	require.Equal(t, float32(0.010), tr.MinPsaRatio())

	tr.NoteNodesCreated(5) // 100/100
	require.Equal(t, float32(2.000), tr.MinPsaRatio())
}

func TestMinPsaRatioIsZeroWithNoBudget(t *testing.T) {
	tr := NewTree(board.NewGoBoard(5, 0, 1), 0)
	require.Equal(t, float32(0), tr.MinPsaRatio())
}

func TestAdvanceRootReusesAMatchingInflatedChild(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)
	tr := NewTree(state, 1000)
	root, _ := tr.Root()

	match := &Child{move: board.Move(4)}
	match.Inflate()
	other := &Child{move: board.Move(1)}
	other.Inflate()
	root.children = []*Child{match, other}
	root.expandState.Store(int32(Expanded))

	next := state.Clone()
	next = next.Play(board.Move(4))
	tr.AdvanceRoot(board.Move(4), next)

	newRoot, _ := tr.Root()
	require.Same(t, match.ptr.Load(), newRoot, "the child matching the played move must become the new root")

	tr.WaitForDestruction()
}

func TestAdvanceRootFallsBackToAFreshRootWhenNoChildMatches(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)
	tr := NewTree(state, 1000)
	root, _ := tr.Root()
	root.expandState.Store(int32(Expanded)) // no children at all

	next := state.Clone()
	next = next.Play(board.Move(4))
	tr.AdvanceRoot(board.Move(4), next)

	newRoot, newState := tr.Root()
	require.NotSame(t, root, newRoot)
	require.Equal(t, next.Hash(), newState.Hash())

	tr.WaitForDestruction()
}

func TestResetDiscardsTheWholeTree(t *testing.T) {
	tr := NewTree(board.NewGoBoard(3, 0, 1), 1000)
	old, _ := tr.Root()

	fresh := board.NewGoBoard(3, 0, 2)
	tr.Reset(fresh)

	newRoot, _ := tr.Root()
	require.NotSame(t, old, newRoot)
	tr.WaitForDestruction()
}
