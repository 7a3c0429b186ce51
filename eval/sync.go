package eval

import (
	"context"

	"github.com/pkg/errors"
)

// Synchronous runs a forward pass in the calling goroutine. Used on CPU,
// or wired up to a tiny reference network as a self-check path when no
// trained weights are available.
type Synchronous struct {
	fn ForwardFunc
}

// NewSynchronous wraps an arbitrary forward function (e.g. a loaded
// weight file's forward pass -- out of scope here) as a synchronous
// Evaluator.
func NewSynchronous(fn ForwardFunc) *Synchronous {
	return &Synchronous{fn: fn}
}

// Forward implements Evaluator by calling fn directly.
func (s *Synchronous) Forward(ctx context.Context, planes Planes) (Evaluation, error) {
	return s.fn(ctx, planes)
}

// ReferenceNetwork is a tiny, untrained linear policy/value head used as a
// self-check reference implementation. It is not a trained network --
// weight-file parsing and the real residual-tower forward pass are
// explicitly out of scope -- but it produces a well-formed, legal-looking
// Evaluation from arbitrary plane input so the rest of the pipeline
// (cache, scheduler, search) can be exercised without a GPU or a weight
// file. It is built from a *tensor.Dense the same way
// Elvenson-alphabeth/agogo.go batches training tensors, kept minimal: a
// flattened dot-product policy head plus a squashed value head.
type ReferenceNetwork struct {
	actionSpace int
	policyW     []float32 // actionSpace weights, one per flattened input sum
	valueW      float32
}

// NewReferenceNetwork builds a deterministic (seed-free, weight-free)
// reference network for the given action space.
func NewReferenceNetwork(actionSpace int) *ReferenceNetwork {
	w := make([]float32, actionSpace)
	for i := range w {
		// A mild, deterministic gradient so policy isn't perfectly
		// uniform; purely a self-check fixture, not a trained prior.
		w[i] = 1.0 + float32(i%7)*0.01
	}
	return &ReferenceNetwork{actionSpace: actionSpace, policyW: w, valueW: 0.001}
}

// Forward implements ForwardFunc. It reduces planes to a scalar feature
// via tensor.Sum, then broadcasts a uniform-ish policy and a value
// squashed into [0, 1].
func (r *ReferenceNetwork) Forward(_ context.Context, planes Planes) (Evaluation, error) {
	summed, err := planes.Data.Sum()
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "eval: reference network sum")
	}
	feature, err := summed.At()
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "eval: reference network scalar")
	}
	f, ok := feature.(float32)
	if !ok {
		return Evaluation{}, errors.Errorf("eval: unexpected tensor dtype %T", feature)
	}

	policy := make([]float32, r.actionSpace)
	var sum float32
	for i, w := range r.policyW {
		p := w
		if f != 0 {
			p *= 1.0 + (f / float32(i+1))
			if p < 0 {
				p = -p
			}
		}
		policy[i] = p
		sum += p
	}
	if sum > 0 {
		for i := range policy {
			policy[i] /= sum
		}
	}

	value := 0.5 + squash(f*r.valueW)
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return Evaluation{Policy: policy, Value: value}, nil
}

// squash maps an arbitrary float into (-0.5, 0.5) with a cheap sigmoid-ish
// curve, avoiding a math.Exp import for what is purely a self-check stand-in.
func squash(x float32) float32 {
	return x / (1 + abs32(x)) / 2
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
