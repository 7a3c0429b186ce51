package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardFuncAdaptsAPlainFunction(t *testing.T) {
	called := false
	f := ForwardFunc(func(ctx context.Context, planes Planes) (Evaluation, error) {
		called = true
		return Evaluation{Value: 0.42}, nil
	})

	got, err := f.Forward(context.Background(), NewPlanes(1, 1, 1))
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, float32(0.42), got.Value)
}

func TestNewPlanesBackingIsZeroedAndRightSized(t *testing.T) {
	p := NewPlanes(4, 3, 3)
	backing := p.Backing()
	require.Len(t, backing, 4*3*3)
	for _, v := range backing {
		require.Equal(t, float32(0), v)
	}
}

func TestErrHaltSatisfiesError(t *testing.T) {
	var err error = ErrHalt{}
	require.EqualError(t, err, "eval: halted (draining)")
}
