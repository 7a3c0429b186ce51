// Package eval is the Evaluator façade: a uniform
// capability "forward(planes) -> policy[N+1]+value" with a synchronous
// (direct) implementation and a batched-asynchronous one backed by
// package scheduler.
//
// The façade shape is grounded on Elvenson-alphabeth's own split: a
// mcts.Inferencer interface (Infer(state) (policy, value)) implemented by
// Agent.Infer, which itself pulls a reusable Inferer off a channel
// (agent.go SwitchToInference/Infer). This module generalizes that into
// an explicit Evaluator interface that can be backed directly (CPU,
// self-check) or through the batching scheduler (GPU-style throughput).
package eval

import (
	"context"

	"gorgonia.org/tensor"
)

// Evaluation is the fixed-shape network output.
type Evaluation struct {
	// Policy has N+1 entries: one prior per intersection plus PASS
	// (Policy[N]).
	Policy []float32
	// Value is the win probability for the side to move, in [0, 1].
	Value float32
}

// Planes is the fixed-layout network input:
// [own_stones x H, opp_stones x H, side_to_move_plane, other_plane].
// It is backed by a *tensor.Dense the same way
// Elvenson-alphabeth/agogo.go's prepareExamples shapes training batches,
// so a malformed plane stack (wrong width/height/feature count) fails the
// same way a malformed training batch does there.
type Planes struct {
	Data *tensor.Dense
}

// NewPlanes allocates a zeroed plane stack of the given feature/height/
// width shape.
func NewPlanes(features, height, width int) Planes {
	return Planes{
		Data: tensor.New(
			tensor.WithShape(features, height, width),
			tensor.Of(tensor.Float32),
		),
	}
}

// Backing returns the flat float32 slice underlying the planes, for
// callers that build the plane stack directly (e.g. board encoders).
func (p Planes) Backing() []float32 {
	return p.Data.Data().([]float32)
}

// ErrHalt is returned by Forward when the evaluator has been drained.
// Search treats this as cooperative cancellation: unwind without
// updating visits.
type ErrHalt struct{}

func (ErrHalt) Error() string { return "eval: halted (draining)" }

// Evaluator is the uniform capability the search core depends on. Both
// the synchronous and batched implementations satisfy it.
type Evaluator interface {
	// Forward runs (or enqueues and waits for) one position's
	// evaluation. ctx cancellation only applies to the batched path's
	// wait; a synchronous evaluator that has already started its forward
	// pass runs to completion.
	Forward(ctx context.Context, planes Planes) (Evaluation, error)
}

// ForwardFunc adapts a plain function to Evaluator, matching the style of
// net/http.HandlerFunc.
type ForwardFunc func(ctx context.Context, planes Planes) (Evaluation, error)

// Forward implements Evaluator.
func (f ForwardFunc) Forward(ctx context.Context, planes Planes) (Evaluation, error) {
	return f(ctx, planes)
}
