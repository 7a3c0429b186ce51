package mcts

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gozero/engine/board"
	"github.com/gozero/engine/cache"
	"github.com/gozero/engine/config"
	"github.com/gozero/engine/eval"
	"github.com/gozero/engine/internal/rng"
	"github.com/gozero/engine/timemgr"
)

// Search drives repeated playouts against a Tree for one move, using the
// configured evaluator, cache and time manager.
type Search struct {
	tree      *Tree
	cfg       *config.Handle
	evaluator eval.Evaluator
	encode    EncodeFunc
	cache     *cache.Cache
	clock     *timemgr.Control

	Logger *log.Logger

	playouts atomic.Int64
}

// NewSearch wires a Search over an existing Tree.
func NewSearch(tree *Tree, cfg *config.Handle, evaluator eval.Evaluator, encode EncodeFunc, c *cache.Cache, clock *timemgr.Control) *Search {
	return &Search{
		tree:      tree,
		cfg:       cfg,
		evaluator: evaluator,
		encode:    encode,
		cache:     c,
		clock:     clock,
		Logger:    log.New(io.Discard, "", 0),
	}
}

// Outcome is the result of Think: the chosen move and bookkeeping useful
// to a caller (GTP genmove, self-play driver, pondering loop).
type Outcome struct {
	Move        board.Move
	Resigned    bool
	Playouts    int64
	ElapsedTime time.Duration
}

// Think runs the search for one move against state (a private clone is
// never required of the caller; Search clones internally per worker
// goroutine) and returns the chosen move. If a clock was wired in via
// NewSearch, it overrides budget with TimeControl.MaxTimeForMove and
// charges the elapsed time back to state.Turn()'s clock when done;
// callers with no clock (e.g. a fixed-time self-play driver) get budget
// verbatim.
func (s *Search) Think(ctx context.Context, state board.Position, budget time.Duration) Outcome {
	cfg := s.cfg.Load()
	start := time.Now()

	if s.clock != nil {
		turn := state.Turn()
		s.clock.Start(turn)
		defer s.clock.Stop(turn)
		boardArea := state.ActionSpace() - 1
		maxCentis := s.clock.MaxTimeForMove(boardArea, turn, state.MoveNumber(), cfg.TimeManage != config.TimeOff)
		budget = time.Duration(maxCentis) * 10 * time.Millisecond
	}

	root, rootState := s.prepareRoot(ctx, state, cfg)

	thinkCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < cfg.NumSearchThreads; i++ {
		wg.Add(1)
		workerSeed := rng.ForWorker(cfg.Seed)
		go func() {
			defer wg.Done()
			s.workerLoop(thinkCtx, stop, root, rootState, cfg, workerSeed.Uint64())
		}()
	}

	s.pruneLoop(thinkCtx, stop, root, rootState.Turn(), cfg, start, budget)
	close(stop)
	wg.Wait()

	move, resigned := s.bestMove(root, rootState, cfg)
	return Outcome{
		Move:        move,
		Resigned:    resigned,
		Playouts:    s.playouts.Load(),
		ElapsedTime: time.Since(start),
	}
}

func (s *Search) workerLoop(ctx context.Context, stop chan struct{}, root *Node, rootState board.Position, cfg config.Config, seed uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}
		state := rootState.Clone()
		_, created, ok := s.playout(ctx, root, state, true, cfg)
		if ok {
			s.playouts.Add(1)
			s.tree.NoteNodesCreated(created)
		}
	}
}

// playout implements the recursive per-playout descent: select down to
// an expandable or terminal node, expand/evaluate there, and unwind
// applying the single backed-up result value (black POV) to every node
// on the path. ok is false when this descent raced another thread's
// expansion or hit super-ko/cancellation and must be discarded without
// updating any node.
func (s *Search) playout(ctx context.Context, node *Node, state board.Position, isRoot bool, cfg config.Config) (value float32, nodesCreated int64, ok bool) {
	node.ApplyVirtualLoss()
	defer node.UndoVirtualLoss()

	minPsaRatio := s.tree.MinPsaRatio()

	if node.Expandable(minPsaRatio) {
		if ended, winner := state.Ended(); ended {
			v := float32(0.5)
			switch winner {
			case board.Black:
				v = 1
			case board.White:
				v = 0
			}
			node.Update(v)
			return v, 0, true
		}
		var didExpand bool
		if cached, ok := s.cache.Lookup(state.Hash()); ok {
			didExpand = node.CreateChildrenFromEval(state, cached, minPsaRatio)
		} else {
			var result eval.Evaluation
			var err error
			didExpand, result, err = node.CreateChildren(ctx, state, s.evaluator, s.encode, minPsaRatio)
			if err != nil {
				return 0, 0, false
			}
			if didExpand {
				s.cache.Insert(state.Hash(), result)
			}
		}
		if didExpand {
			v := node.NetValue()
			node.Update(v)
			return v, int64(len(node.Children())), true
		}
		// Another thread is mid-expansion; nothing to back up this time.
		return 0, 0, false
	}

	if node.HasChildren() {
		noiseOn := isRoot && cfg.DirichletEpsilon > 0
		next := node.UCTSelectChild(state.Turn(), isRoot, noiseOn, cfg.PUCT, cfg.FPUReduction)
		if next == nil {
			return 0, 0, false
		}
		child := next.Inflate()
		passMove := board.Move(state.ActionSpace() - 1)
		state = state.Play(next.move)
		if next.move != passMove && state.SuperKo() {
			child.SetStatus(InvalidStatus)
			return 0, 0, false
		}
		v, created, valid := s.playout(ctx, child, state, false, cfg)
		if valid {
			node.Update(v)
		}
		return v, created, valid
	}

	return 0, 0, false
}

// prepareRoot ensures the root node is expanded, all its children are
// inflated, super-ko children are killed, and (if enabled) Dirichlet
// noise is mixed into the root priors.
func (s *Search) prepareRoot(ctx context.Context, state board.Position, cfg config.Config) (*Node, board.Position) {
	root, rootState := s.tree.Root()

	if root.ExpandState() == Initial {
		var didExpand bool
		if cached, ok := s.cache.Lookup(rootState.Hash()); ok {
			didExpand = root.CreateChildrenFromEval(rootState, cached, 0)
		} else {
			var result eval.Evaluation
			didExpand, result, _ = root.CreateChildren(ctx, rootState, s.evaluator, s.encode, 0)
			if didExpand {
				s.cache.Insert(rootState.Hash(), result)
			}
		}
		if didExpand {
			root.Update(root.NetValue())
			s.tree.NoteNodesCreated(int64(len(root.Children())))
		}
	}
	if root.HasChildren() {
		root.InflateAllChildren()
		root.KillSuperkos(rootState)
		if cfg.DirichletEpsilon > 0 {
			alpha := cfg.DirichletAlpha * 361 / float32(rootState.ActionSpace()-1)
			root.DirichletNoise(cfg.DirichletEpsilon, alpha, rng.ForMain(cfg.Seed).Uint64())
		}
	}
	return root, rootState
}

// pruneLoop implements non-contender pruning and the overall stop
// condition: time budget exhausted, playout/visit caps reached, or every
// alternative move has been pruned with time saved to spare.
func (s *Search) pruneLoop(ctx context.Context, stop chan struct{}, root *Node, toMove board.Color, cfg config.Config, start time.Time, budget time.Duration) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			if cfg.MaxPlayouts > 0 && s.playouts.Load() >= int64(cfg.MaxPlayouts) {
				return
			}
			if cfg.MaxVisits > 0 && int64(root.Visits()) >= int64(cfg.MaxVisits) {
				return
			}
			if cfg.TimeManage == config.TimeOff {
				continue
			}
			if s.pruneNonContenders(root, toMove, elapsed, budget, cfg) {
				return
			}
		}
	}
}

// pruneNonContenders marks children inactive that cannot mathematically
// overtake the leader within the remaining playout budget, and reports
// whether search should stop now (exactly one contender remains and
// meaningful time would be saved by stopping).
func (s *Search) pruneNonContenders(root *Node, toMove board.Color, elapsed, budget time.Duration, cfg config.Config) bool {
	if !root.HasChildren() {
		return false
	}
	children := root.Children()

	var maxVisits int32
	for _, c := range children {
		if cn := c.ptr.Load(); cn != nil && cn.Status() == Active {
			if v := cn.Visits(); v > maxVisits {
				maxVisits = v
			}
		}
	}

	remaining := budget - elapsed
	if remaining < 0 {
		remaining = 0
	}
	playoutRate := estPlayoutRate(s.playouts.Load(), elapsed)
	nLeft := int32(playoutRate * remaining.Seconds())

	var leaderLCB float32 = -2
	for _, c := range children {
		if cn := c.ptr.Load(); cn != nil && cn.Status() == Active && cn.Visits() == maxVisits {
			leaderLCB = cn.LCBFor(toMove, cfg.LCBConfidence)
			break
		}
	}

	activeCount := 0
	for _, c := range children {
		cn := c.ptr.Load()
		if cn == nil || cn.Status() != Active {
			continue
		}
		mayOvertake := cn.Visits()+nLeft >= maxVisits || cn.RawEval(toMove) >= leaderLCB
		if !mayOvertake {
			cn.SetStatus(Pruned)
			continue
		}
		activeCount++
	}

	if activeCount <= 1 && cfg.TimeManage != config.TimeNoPruning {
		timeSaved := budget - elapsed
		if timeSaved > 500*time.Millisecond {
			return true
		}
	}
	return false
}

// estPlayoutRate estimates playouts per second from playouts completed
// so far and elapsed wall time.
func estPlayoutRate(playouts int64, elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(playouts) / seconds
}

// bestMove extracts the final move: sort children by LCB/robustness,
// apply pass/resign post-filters, and report whether the result is a
// resignation.
func (s *Search) bestMove(root *Node, state board.Position, cfg config.Config) (board.Move, bool) {
	if !root.HasChildren() {
		return board.ResignMove, true
	}
	children := root.Children()
	minVisitFloor := int32(cfg.LCBMinVisitRatio * float32(maxVisits(children)))
	SortChildren(children, state.Turn(), minVisitFloor, cfg.LCBConfidence)

	var best *Child
	for _, c := range children {
		cn := c.ptr.Load()
		if cn != nil && cn.Status() == Active {
			best = c
			break
		}
	}
	if best == nil {
		return board.ResignMove, true
	}

	color := state.Turn()
	passMove := board.Move(state.ActionSpace() - 1)
	move := best.move
	bestEval := childRawEval(best, color)

	// Pass-preference post-filters, grounded on original_source's
	// get_best_move: never play into a losing pass when a live
	// alternative exists, and always pass out a won or drawn game once
	// the opponent has passed. Skipped entirely under DumbPass.
	if !cfg.DumbPass {
		relativeScore := state.Score(color) - state.Score(color.Opposite())
		switch {
		case move == passMove:
			switch {
			case relativeScore < 0:
				if alt := firstNonPassActiveChild(children, passMove); alt != nil {
					move = alt.move
					bestEval = childRawEval(alt, color)
				}
			case relativeScore == 0:
				if alt := firstNonPassActiveChild(children, passMove); alt != nil {
					if altEval := childRawEval(alt, color); altEval > 0.5 {
						move = alt.move
						bestEval = altEval
					}
				}
			}
		case state.LastMove() == passMove && state.Legal(passMove):
			switch {
			case relativeScore > 0:
				move = passMove
			case relativeScore == 0 && bestEval < 0.5:
				move = passMove
			}
		}
	}

	if move != passMove && cfg.ResignPercent != 0 {
		threshold := float32(cfg.ResignPercent) / 100.0
		if cfg.ResignPercent < 0 {
			// -1 means "use the default 10%" (original_source's
			// cfg_resignpct < 0 branch), not "resignation disabled" --
			// only an explicit 0 disables it.
			threshold = 0.10
		}
		if bestEval < threshold {
			return board.ResignMove, true
		}
	}

	return move, false
}

// childRawEval reads a child's raw evaluation for color, falling back to
// 0.5 for a child that hasn't been visited yet (matching
// original_source's first_visit() ? 0.5 fallback).
func childRawEval(c *Child, color board.Color) float32 {
	cn := c.ptr.Load()
	if cn == nil || cn.Visits() == 0 {
		return 0.5
	}
	return cn.RawEval(color)
}

// firstNonPassActiveChild returns the highest-ranked active non-pass
// child from an already-SortChildren-ordered slice, or nil if none
// remain.
func firstNonPassActiveChild(children []*Child, passMove board.Move) *Child {
	for _, c := range children {
		if c.move == passMove {
			continue
		}
		if cn := c.ptr.Load(); cn != nil && cn.Status() == Active {
			return c
		}
	}
	return nil
}

func maxVisits(children []*Child) int32 {
	var m int32
	for _, c := range children {
		if cn := c.ptr.Load(); cn != nil && cn.Visits() > m {
			m = cn.Visits()
		}
	}
	return m
}

// PV extracts the principal variation by repeatedly following the
// best child from root, for analysis output.
func (s *Search) PV(root *Node, color board.Color, cfg config.Config) []board.Move {
	var pv []board.Move
	n := root
	c := color
	for n != nil && n.HasChildren() {
		children := append([]*Child(nil), n.Children()...)
		SortChildren(children, c, 0, cfg.LCBConfidence)
		var next *Child
		for _, ch := range children {
			cn := ch.ptr.Load()
			if cn != nil && cn.Status() == Active && cn.Visits() > 0 {
				next = ch
				break
			}
		}
		if next == nil {
			break
		}
		pv = append(pv, next.move)
		n = next.ptr.Load()
		c = c.Opposite()
	}
	return pv
}

