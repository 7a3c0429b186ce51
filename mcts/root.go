package mcts

import (
	"math"

	distrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/gozero/engine/board"
)

// KillSuperkos tombstones (marks InvalidStatus) every active child whose
// move would replay a ko_hash already present in state's history. The
// children slice is not compacted: invalidated slots stay in place and
// selection skips them by status. All root children must already be
// inflated before this is called, since status lives on the Node, not
// the Child.
func (n *Node) KillSuperkos(state board.Position) {
	passMove := board.Move(state.ActionSpace() - 1)
	for _, c := range n.children {
		cn := c.ptr.Load()
		if cn == nil || cn.Status() != Active {
			continue
		}
		if c.move == passMove || int32(c.move) < 0 {
			continue // PASS/RESIGN are never superko violations
		}
		if !state.Legal(c.move) {
			continue
		}
		next := state.Clone()
		next = next.Play(c.move)
		if next.SuperKo() {
			cn.SetStatus(InvalidStatus)
		}
	}
}

// InflateAllChildren ensures every child of n owns a Node, so racing
// reads during root preparation are always against real status/visit
// fields rather than an uninflated (move, prior) pair.
func (n *Node) InflateAllChildren() {
	for _, c := range n.children {
		c.Inflate()
	}
}

// DirichletNoise mixes each child's prior with an i.i.d. Gamma(alpha)
// sample (via a Dirichlet draw over all children at once), normalized,
// weighted by epsilon. alpha should already be scaled to board area by
// the caller (alpha = 0.03 * 361 / N).
func (n *Node) DirichletNoise(epsilon, alpha float32, seed uint64) {
	count := len(n.children)
	if count == 0 {
		return
	}
	alphaVec := make([]float64, count)
	for i := range alphaVec {
		alphaVec[i] = float64(alpha)
	}
	dist := distmv.NewDirichlet(alphaVec, distrand.NewSource(seed))
	noise := dist.Rand(nil)

	for i, c := range n.children {
		mixed := (1-epsilon)*c.Prior() + epsilon*float32(noise[i])
		c.prior.Store(mixed)
	}
}

// RandomizeFirstProportionally samples one child with probability
// proportional to visits^(1/temperature) among children with visits >
// visitFloor, and swaps it to the front of the child list. Used during
// the first random_move_count moves of a game.
func (n *Node) RandomizeFirstProportionally(temperature float32, visitFloor int32, seed uint64) {
	type candidate struct {
		idx    int
		weight float64
	}
	var candidates []candidate
	for i, c := range n.children {
		cn := c.ptr.Load()
		if cn == nil || cn.Status() != Active {
			continue
		}
		if cn.Visits() <= visitFloor {
			continue
		}
		w := math.Pow(float64(cn.Visits()), 1.0/float64(temperature))
		candidates = append(candidates, candidate{idx: i, weight: w})
	}
	if len(candidates) == 0 {
		return
	}

	var total float64
	for _, c := range candidates {
		total += c.weight
	}

	r := distrand.New(distrand.NewSource(seed)).Float64() * total
	chosen := candidates[len(candidates)-1].idx
	var acc float64
	for _, c := range candidates {
		acc += c.weight
		if r <= acc {
			chosen = c.idx
			break
		}
	}

	if chosen != 0 {
		n.children[0], n.children[chosen] = n.children[chosen], n.children[0]
	}
}
