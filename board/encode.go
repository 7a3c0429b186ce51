package board

import "github.com/gozero/engine/eval"

// Encode rasterizes state into the fixed-layout plane stack described by
// eval.Planes: one plane of the side-to-move's own stones, one of the
// opponent's, a side-to-move indicator plane (all-ones for Black,
// all-zeros for White) and an "other" plane (move number, normalized,
// broadcast across every point -- a cheap stand-in for leela-zero's extra
// rule/komi planes).
func Encode(state Position) eval.Planes {
	size := state.BoardSize()
	planes := eval.NewPlanes(4, size, size)
	backing := planes.Backing()
	n := size * size

	toMove := state.Turn()
	opp := toMove.Opposite()

	for p := 0; p < n; p++ {
		c := state.StoneAt(p)
		switch c {
		case toMove:
			backing[p] = 1
		case opp:
			backing[n+p] = 1
		}
	}

	if toMove == Black {
		for p := 0; p < n; p++ {
			backing[2*n+p] = 1
		}
	}

	moveFrac := float32(state.MoveNumber()%200) / 200.0
	for p := 0; p < n; p++ {
		backing[3*n+p] = moveFrac
	}

	return planes
}
