// Package scheduler implements a batching evaluation scheduler: it turns
// a stream of single-position evaluation requests into batches for a
// GPU-shaped forward function, with an adaptive wait window so a lone
// thread on the critical path is never starved behind a batch that can't
// form.
//
// This has no direct analogue in Elvenson-alphabeth (its Agent.Infer pulls
// a ready-made Inferer off a buffered channel, one per search thread, with
// no batching at all). The batching algorithm itself is grounded on
// leela-zero's OpenCLScheduler: the shared FIFO, the single-eval-in-progress
// flag, and the adaptive wait_window. This module expresses that design
// using a sync.Mutex plus sync.Cond and a goroutine per worker, in place
// of leela-zero's ThreadPool/future plumbing.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/gozero/engine/eval"
)

// ForwardBatchFunc runs one batch of planes through the network, producing
// one Evaluation per input in the same order.
type ForwardBatchFunc func(ctx context.Context, planes []eval.Planes) ([]eval.Evaluation, error)

type request struct {
	planes eval.Planes
	resultCh chan result
}

type result struct {
	eval eval.Evaluation
	err  error
}

// Scheduler owns a worker pool per device that coalesces concurrent
// Forward callers into batches. It implements eval.Evaluator.
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue []*request

	batchSize int
	forward   ForwardBatchFunc

	// waitWindow is the adaptive wait bound, in milliseconds, clamped to
	// >= minWaitMS (initially 10ms, bounded below at 1ms).
	waitWindow int

	singleEvalInProgress bool
	draining             bool

	workers  int
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

const (
	initialWaitMS = 10
	minWaitMS     = 1
)

// New starts a Scheduler with the given number of worker goroutines, each
// able to assemble batches of up to batchSize requests. The caller sizes
// workers by ceil(numSearchThreads/batchSize/(numDevices+1)) + 1 and
// passes the result in directly.
func New(workers, batchSize int, forward ForwardBatchFunc) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	s := &Scheduler{
		batchSize:  batchSize,
		forward:    forward,
		waitWindow: initialWaitMS,
		workers:    workers,
		stopCh:     make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
	return s
}

// Forward implements eval.Evaluator: it enqueues planes and blocks until a
// worker has produced (or failed to produce, or drained) a result.
func (s *Scheduler) Forward(ctx context.Context, planes eval.Planes) (eval.Evaluation, error) {
	req := &request{planes: planes, resultCh: make(chan result, 1)}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return eval.Evaluation{}, eval.ErrHalt{}
	}
	s.queue = append(s.queue, req)
	s.cond.Signal()
	s.mu.Unlock()

	select {
	case r := <-req.resultCh:
		return r.eval, r.err
	case <-ctx.Done():
		return eval.Evaluation{}, ctx.Err()
	}
}

// workerLoop implements the batch-pickup algorithm.
func (s *Scheduler) workerLoop() {
	defer s.wg.Done()
	wasSingleEval := false
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.Lock()
		var batch []*request

		switch {
		case len(s.queue) >= s.batchSize:
			// (1) a full batch is ready immediately.
			batch = s.queue[:s.batchSize]
			s.queue = s.queue[s.batchSize:]
		default:
			// (2) wait on the cond for up to waitWindow, or until the
			// queue fills, or we're asked to stop.
			waited := s.waitForQueue()
			if waited {
				switch {
				case len(s.queue) >= s.batchSize:
					batch = s.queue[:s.batchSize]
					s.queue = s.queue[s.batchSize:]
				case len(s.queue) > 0 && !s.singleEvalInProgress:
					// (3) claim the single-eval role to make progress.
					s.singleEvalInProgress = true
					wasSingleEval = true
					batch = s.queue[:1]
					s.queue = s.queue[1:]
					s.waitWindow = max(minWaitMS, s.waitWindow-1)
				case len(s.queue) > 0 && wasSingleEval:
					// (4) more work queued up while our single eval was
					// in flight: favour batching next time.
					s.waitWindow += 2
				}
			}
		}
		s.mu.Unlock()

		if len(batch) == 0 {
			continue
		}

		s.runBatch(batch)

		if wasSingleEval && len(batch) == 1 {
			s.mu.Lock()
			s.singleEvalInProgress = false
			s.mu.Unlock()
			wasSingleEval = false
		}
	}
}

// waitForQueue blocks on the condition variable for up to waitWindow
// milliseconds, or until the queue holds a full batch, or stop is
// requested. It must be called with s.mu held, and returns with s.mu
// held. It reports whether the caller should re-check the queue: false
// if we were told to stop or the window ran out with the queue still
// empty, true otherwise.
func (s *Scheduler) waitForQueue() bool {
	deadline := time.Now().Add(time.Duration(s.waitWindow) * time.Millisecond)
	for len(s.queue) < s.batchSize {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return len(s.queue) > 0
		}
		timer := time.AfterFunc(remaining, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		s.cond.Wait()
		timer.Stop()
		select {
		case <-s.stopCh:
			return false
		default:
		}
	}
	return true
}

func (s *Scheduler) runBatch(batch []*request) {
	planes := make([]eval.Planes, len(batch))
	for i, r := range batch {
		planes[i] = r.planes
	}

	s.mu.Lock()
	draining := s.draining
	s.mu.Unlock()
	if draining {
		for _, r := range batch {
			r.resultCh <- result{err: eval.ErrHalt{}}
		}
		return
	}

	evals, err := s.forward(context.Background(), planes)
	if err != nil {
		for _, r := range batch {
			r.resultCh <- result{err: err}
		}
		return
	}
	for i, r := range batch {
		r.resultCh <- result{eval: evals[i]}
	}
}

// Drain stops accepting new requests and causes every in-flight and
// future Forward call to fail with eval.ErrHalt until Resume is called.
func (s *Scheduler) Drain() {
	s.mu.Lock()
	s.draining = true
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()
	for _, r := range pending {
		r.resultCh <- result{err: eval.ErrHalt{}}
	}
}

// Resume reopens the gate closed by Drain.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.draining = false
	s.mu.Unlock()
}

// Close stops all worker goroutines, aggregating any requests still
// queued into a multierror the same way Elvenson-alphabeth/agent.go's
// Close aggregates per-inferer close failures.
func (s *Scheduler) Close() error {
	var errs error
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		s.cond.Broadcast()
		pending := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, r := range pending {
			r.resultCh <- result{err: eval.ErrHalt{}}
			errs = multierror.Append(errs, eval.ErrHalt{})
		}
	})
	s.wg.Wait()
	return errs
}
