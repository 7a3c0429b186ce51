package mcts

import (
	"context"
	"sort"

	"github.com/chewxy/math32"

	"github.com/gozero/engine/board"
	"github.com/gozero/engine/eval"
)

// EncodeFunc turns a position into the fixed-layout plane stack the
// evaluator expects. Supplied by the caller, since only the board
// collaborator knows how to rasterize itself.
type EncodeFunc func(state board.Position) eval.Planes

// CreateChildren acquires expansion (CAS on expandState). If the game is
// over at this position, it returns false without mutating expandState.
// Otherwise it requests an evaluation, builds the child list from
// (move, prior) pairs over every legal move plus PASS, renormalizes
// priors over legal moves, records netValue, sorts children descending
// by prior, keeps only those with prior >= maxPrior*minPsaRatio, and
// commits to Expanded. It returns true iff this call performed the
// expansion (the caller should then back up outEval).
func (n *Node) CreateChildren(
	ctx context.Context,
	state board.Position,
	evaluator eval.Evaluator,
	encode EncodeFunc,
	minPsaRatio float32,
) (didExpand bool, outEval eval.Evaluation, err error) {
	if ended, _ := state.Ended(); ended {
		return false, eval.Evaluation{}, nil
	}
	if !n.beginExpand() {
		return false, eval.Evaluation{}, nil
	}

	planes := encode(state)
	result, err := evaluator.Forward(ctx, planes)
	if err != nil {
		n.abortExpand()
		return false, eval.Evaluation{}, err
	}

	n.commitFromEval(state, result, minPsaRatio)
	return true, result, nil
}

// CreateChildrenFromEval is CreateChildren's cache-hit path: it skips the
// evaluator call entirely and expands from a result already on hand (a
// cache.Cache lookup keyed on state.Hash()), the same bypass
// original_source/src/UCTNode.cpp's create_children takes when
// NNCache::lookup succeeds.
func (n *Node) CreateChildrenFromEval(state board.Position, result eval.Evaluation, minPsaRatio float32) (didExpand bool) {
	if ended, _ := state.Ended(); ended {
		return false
	}
	if !n.beginExpand() {
		return false
	}
	n.commitFromEval(state, result, minPsaRatio)
	return true
}

// commitFromEval builds the child list from result's policy and commits
// expansion. Caller must already hold the expansion claim (beginExpand
// returned true).
func (n *Node) commitFromEval(state board.Position, result eval.Evaluation, minPsaRatio float32) {
	actionSpace := state.ActionSpace()
	type candidate struct {
		move  board.Move
		prior float32
	}
	candidates := make([]candidate, 0, actionSpace)
	var priorSum float32
	for idx := 0; idx < actionSpace; idx++ {
		mv := state.NNToMove(idx)
		if !state.Legal(mv) {
			continue
		}
		p := float32(0)
		if idx < len(result.Policy) {
			p = result.Policy[idx]
		}
		candidates = append(candidates, candidate{move: mv, prior: p})
		priorSum += p
	}
	if priorSum > 0 {
		for i := range candidates {
			candidates[i].prior /= priorSum
		}
	} else if len(candidates) > 0 {
		uniform := 1.0 / float32(len(candidates))
		for i := range candidates {
			candidates[i].prior = uniform
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].prior > candidates[j].prior
	})

	var maxPrior float32
	if len(candidates) > 0 {
		maxPrior = candidates[0].prior
	}
	threshold := maxPrior * minPsaRatio

	children := make([]*Child, 0, len(candidates))
	for _, c := range candidates {
		if c.prior < threshold {
			continue
		}
		ch := &Child{move: c.move}
		ch.prior.Store(c.prior)
		children = append(children, ch)
	}

	netValue := fromBlack(state.Turn(), result.Value)
	n.commitExpand(children, netValue, minPsaRatio)
}

// fromBlack converts a value expressed from toMove's point of view into
// black's point of view.
func fromBlack(toMove board.Color, value float32) float32 {
	if toMove == board.White {
		return 1 - value
	}
	return value
}

// UCTSelectChild picks the active child maximizing Q+U under PUCT,
// inflates it and returns it. isRoot disables FPU when noiseOnRoot is
// true, so root exploration via Dirichlet noise isn't doubled up with an
// FPU penalty.
func (n *Node) UCTSelectChild(color board.Color, isRoot, noiseOnRoot bool, puct, fpuReduction float32) *Child {
	var parentVisits int32
	for _, c := range n.children {
		if cn := c.ptr.Load(); cn != nil {
			parentVisits += cn.Visits()
		}
	}
	sqrtParent := math32.Sqrt(float32(parentVisits))

	var visitedMass float32
	for _, c := range n.children {
		if cn := c.ptr.Load(); cn != nil && cn.Visits() > 0 {
			visitedMass += c.Prior()
		}
	}

	disableFPU := isRoot && noiseOnRoot
	fpuValue := n.netValue // black POV; convert to color's POV like ValueFor
	if color == board.White {
		fpuValue = 1 - fpuValue
	}
	if !disableFPU {
		fpuValue -= fpuReduction * math32.Sqrt(visitedMass)
	}

	var best *Child
	var bestScore float32 = math32.Inf(-1)
	for _, c := range n.children {
		cn := c.ptr.Load()
		if cn != nil && cn.Status() != Active {
			continue
		}

		prior := c.Prior()
		var visits int32
		var q float32
		if cn != nil {
			visits = cn.Visits()
		}
		u := puct * prior * sqrtParent / (1 + float32(visits))
		if cn != nil && cn.Visits() > 0 {
			// Virtual loss only enters through Q (ValueFor), never the U
			// term's visit counts -- original_source/src/UCTNode.cpp's
			// get_eval mixes it into the value average, not puct_mult.
			q = cn.ValueFor(color)
		} else {
			q = fpuValue
		}
		score := q + u
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return nil
	}
	best.Inflate()
	return best
}
