package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gozero/engine/eval"
)

func echoValueForward(ctx context.Context, planes []eval.Planes) ([]eval.Evaluation, error) {
	out := make([]eval.Evaluation, len(planes))
	for i := range planes {
		out[i] = eval.Evaluation{Value: float32(i) / float32(len(planes))}
	}
	return out, nil
}

func TestForwardCompletesEveryRequestOfAFullBatch(t *testing.T) {
	s := New(2, 4, echoValueForward)
	defer s.Close()

	var wg sync.WaitGroup
	results := make([]eval.Evaluation, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := s.Forward(context.Background(), eval.NewPlanes(1, 1, 1))
			require.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()
}

func TestForwardFallsBackToASingleEvalWhenTheQueueNeverFills(t *testing.T) {
	s := New(1, 8, echoValueForward)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.Forward(ctx, eval.NewPlanes(1, 1, 1))
	require.NoError(t, err, "a lone request must still complete via the single-eval-in-progress path")
}

func TestDrainFailsNewRequestsUntilResume(t *testing.T) {
	s := New(1, 8, echoValueForward)
	defer s.Close()

	s.Drain()
	_, err := s.Forward(context.Background(), eval.NewPlanes(1, 1, 1))
	require.ErrorAs(t, err, &eval.ErrHalt{})

	s.Resume()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = s.Forward(ctx, eval.NewPlanes(1, 1, 1))
	require.NoError(t, err)
}

func TestCloseLetsAnEarlierForwardCallReturn(t *testing.T) {
	s := New(1, 64, echoValueForward)

	done := make(chan struct{})
	go func() {
		s.Forward(context.Background(), eval.NewPlanes(1, 1, 1))
		close(done)
	}()

	// Give the Forward call a moment to enqueue (it may already have been
	// served by the single-eval path) before closing; whichever way it
	// ends, the Forward call must return.
	time.Sleep(20 * time.Millisecond)
	s.Close()
	<-done
}
