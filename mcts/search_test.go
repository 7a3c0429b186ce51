package mcts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gozero/engine/board"
	"github.com/gozero/engine/cache"
	"github.com/gozero/engine/config"
	"github.com/gozero/engine/eval"
)

func TestThinkReturnsALegalMoveWithoutAClock(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)

	cfg := config.Default()
	cfg.NumSearchThreads = 2
	cfg.DirichletEpsilon = 0
	cfg.MaxPlayouts = 100
	handle := config.NewHandle(cfg)

	tree := NewTree(state, 10_000)
	evalCache := cache.New(0)
	net := eval.ForwardFunc(func(ctx context.Context, planes eval.Planes) (eval.Evaluation, error) {
		return eval.Evaluation{Policy: uniformPolicy(state.ActionSpace()), Value: 0.5}, nil
	})
	search := NewSearch(tree, handle, net, board.Encode, evalCache, nil)

	outcome := search.Think(context.Background(), state, 2*time.Second)

	require.Greater(t, outcome.Playouts, int64(0))
	if !outcome.Resigned {
		require.True(t, state.Legal(outcome.Move) || outcome.Move == board.Move(state.ActionSpace()-1))
	}
}

func TestThinkResignsWithTheDefaultTenPercentThreshold(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)

	cfg := config.Default()
	require.Equal(t, -1, cfg.ResignPercent, "the shipped default is -1 (\"use 10%\"), not \"disabled\"")
	cfg.NumSearchThreads = 1
	cfg.DirichletEpsilon = 0
	cfg.MaxPlayouts = 40
	handle := config.NewHandle(cfg)

	tree := NewTree(state, 10_000)
	evalCache := cache.New(0)
	net := eval.ForwardFunc(func(ctx context.Context, planes eval.Planes) (eval.Evaluation, error) {
		return eval.Evaluation{Policy: uniformPolicy(state.ActionSpace()), Value: 0.01}, nil
	})
	search := NewSearch(tree, handle, net, board.Encode, evalCache, nil)

	outcome := search.Think(context.Background(), state, 2*time.Second)
	require.True(t, outcome.Resigned, "ResignPercent -1 must still resign once raw eval falls below the 10%% default threshold")
}

func TestThinkNeverResignsWhenResignPercentIsExplicitlyZero(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)

	cfg := config.Default()
	cfg.ResignPercent = 0
	cfg.NumSearchThreads = 1
	cfg.DirichletEpsilon = 0
	cfg.MaxPlayouts = 40
	handle := config.NewHandle(cfg)

	tree := NewTree(state, 10_000)
	evalCache := cache.New(0)
	net := eval.ForwardFunc(func(ctx context.Context, planes eval.Planes) (eval.Evaluation, error) {
		return eval.Evaluation{Policy: uniformPolicy(state.ActionSpace()), Value: 0.01}, nil
	})
	search := NewSearch(tree, handle, net, board.Encode, evalCache, nil)

	outcome := search.Think(context.Background(), state, 2*time.Second)
	require.False(t, outcome.Resigned, "an explicit 0 is the only setting that disables resignation")
}

func TestBestMovePrefersALiveAlternativeToALosingPass(t *testing.T) {
	state := board.NewGoBoard(3, 2, 1) // komi=2: passing with no stones down loses for Black.
	passMove := board.Move(state.ActionSpace() - 1)
	altMove := board.Move(0)

	passChild := &Child{move: passMove}
	passChild.ptr.Store(newVisitedNode(0.9))
	altChild := &Child{move: altMove}
	altChild.ptr.Store(newVisitedNode(0.6))

	root := &Node{}
	root.children = []*Child{passChild, altChild}

	search := &Search{}
	move, resigned := search.bestMove(root, state, config.Default())
	require.False(t, resigned)
	require.Equal(t, altMove, move, "a losing pass must give way to a live non-pass alternative")
}

func TestBestMoveKeepsPassingWhenPassWins(t *testing.T) {
	base := board.NewGoBoard(3, 2, 1)
	passMove := board.Move(base.ActionSpace() - 1)
	state := base.Play(passMove) // Black passes; White to move, ahead by komi alone.

	altMove := board.Move(0)
	// Values are stored black-POV; White is to move here, so a black-POV
	// 0.1 is White's 0.9 (favoring the pass) against White's 0.6 (alt).
	passChild := &Child{move: passMove}
	passChild.ptr.Store(newVisitedNode(0.1))
	altChild := &Child{move: altMove}
	altChild.ptr.Store(newVisitedNode(0.4))

	root := &Node{}
	root.children = []*Child{passChild, altChild}

	search := &Search{}
	move, resigned := search.bestMove(root, state, config.Default())
	require.False(t, resigned)
	require.Equal(t, passMove, move, "a winning pass must not be displaced by a non-pass alternative")
}

func TestBestMovePassesOutAWinAfterOpponentPasses(t *testing.T) {
	base := board.NewGoBoard(3, 2, 1)
	passMove := board.Move(base.ActionSpace() - 1)
	state := base.Play(passMove) // Black passes; White is ahead by komi and to move.
	require.Equal(t, passMove, state.LastMove())

	// Black-POV 0.1 reads as White's 0.9: comfortably clear of the 10%
	// resign threshold either way this lands.
	nonPassChild := &Child{move: 0}
	nonPassChild.ptr.Store(newVisitedNode(0.1))

	root := &Node{}
	root.children = []*Child{nonPassChild}

	search := &Search{}
	move, resigned := search.bestMove(root, state, config.Default())
	require.False(t, resigned)
	require.Equal(t, passMove, move, "once the opponent has passed, a winning position must be passed out rather than played on")
}

func TestBestMoveHonorsDumbPass(t *testing.T) {
	base := board.NewGoBoard(3, 2, 1)
	passMove := board.Move(base.ActionSpace() - 1)
	state := base.Play(passMove)

	// Black-POV 0.1 reads as White's 0.9: comfortably clear of the 10%
	// resign threshold either way this lands.
	nonPassChild := &Child{move: 0}
	nonPassChild.ptr.Store(newVisitedNode(0.1))

	root := &Node{}
	root.children = []*Child{nonPassChild}

	cfg := config.Default()
	cfg.DumbPass = true

	search := &Search{}
	move, resigned := search.bestMove(root, state, cfg)
	require.False(t, resigned)
	require.Equal(t, board.Move(0), move, "DumbPass must suppress the pass-out-a-win post-filter entirely")
}

func TestPVFollowsTheMostVisitedLineage(t *testing.T) {
	state := board.NewGoBoard(3, 0, 1)
	n := expandedNodeFor(t, state)
	n.InflateAllChildren()

	leader := n.Children()[0]
	for i := 0; i < 10; i++ {
		leader.ptr.Load().Update(0.5)
	}

	search := &Search{}
	pv := search.PV(n, board.Black, config.Default())
	require.NotEmpty(t, pv)
	require.Equal(t, leader.Move(), pv[0])
}
