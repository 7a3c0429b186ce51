package cache

import "github.com/gozero/engine/eval"

// NumSymmetries is the count of non-identity board automorphisms: 4
// rotations x reflection, minus the identity itself.
const NumSymmetries = 7

// Symmetries bundles, for a given board size, the forward permutation
// (apply symmetry s to a policy vector) and its inverse. Index 0..6
// corresponds to the 7 non-identity symmetries; PASS (the last policy
// slot) is always fixed by every symmetry.
type Symmetries struct {
	// Permute[s] applies symmetry s to a policy vector and Inverse[s]
	// undoes it. Symmetric fingerprints are not stored here: the cache
	// never computes them itself -- only the board collaborator knows
	// the geometry -- so LookupSymmetric takes a symHash function for them.
	Permute [NumSymmetries]SymmetryFunc
	Inverse [NumSymmetries]SymmetryFunc
}

// LookupSymmetric implements opening-phase symmetry reuse: during the
// opening (moveNumber < openingMoves/2) and with noise disabled, a plain
// lookup miss tries each of the 7 symmetric fingerprints in turn; on a
// hit, the cached policy is permuted back by the matching inverse map
// before being returned. Applying a symmetry then its inverse is the
// identity, which is what makes this round-trip safe.
//
// symHash computes the KoHash-equivalent fingerprint for symmetry index i
// without the cache needing any board knowledge.
func (c *Cache) LookupSymmetric(
	key uint64,
	moveNumber, openingMoves int,
	noiseEnabled bool,
	sym Symmetries,
	symHash func(i int) uint64,
) (eval.Evaluation, bool) {
	if v, ok := c.Lookup(key); ok {
		return v, true
	}
	if noiseEnabled || moveNumber >= openingMoves/2 {
		return eval.Evaluation{}, false
	}
	for i := 0; i < NumSymmetries; i++ {
		h := symHash(i)
		if h == key {
			continue
		}
		v, ok := c.Lookup(h)
		if !ok {
			continue
		}
		permuted := eval.Evaluation{
			Policy: sym.Inverse[i](v.Policy),
			Value:  v.Value,
		}
		return permuted, true
	}
	return eval.Evaluation{}, false
}
