package mcts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gozero/engine/board"
)

func TestDumpGraphvizProducesANodePerInflatedChild(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)
	tr := NewTree(state, 1000)
	root, _ := tr.Root()

	didExpand, _, err := root.CreateChildren(context.Background(), state, constantEvaluator(uniformPolicy(state.ActionSpace()), 0.5), board.Encode, 0)
	require.NoError(t, err)
	require.True(t, didExpand)
	root.InflateAllChildren()

	dot := tr.DumpGraphviz(1)
	require.Contains(t, dot, "digraph")
	require.Contains(t, dot, "root")
	require.True(t, strings.Count(dot, "visits=") >= len(root.Children())+1)

	tr.WaitForDestruction()
}

func TestDumpGraphvizStopsAtMaxDepth(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)
	tr := NewTree(state, 1000)
	root, _ := tr.Root()

	didExpand, _, err := root.CreateChildren(context.Background(), state, constantEvaluator(uniformPolicy(state.ActionSpace()), 0.5), board.Encode, 0)
	require.NoError(t, err)
	require.True(t, didExpand)
	root.InflateAllChildren()

	dot := tr.DumpGraphviz(0)
	require.Equal(t, 1, strings.Count(dot, "visits="), "depth 0 must render only the root")

	tr.WaitForDestruction()
}
