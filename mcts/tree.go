package mcts

import (
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gozero/engine/board"
)

// Tree owns the root node, tracks the number of live nodes against a
// configured budget, and reuses subtrees across moves where possible.
// Destruction of discarded subtrees (walking them to update the node
// count) runs on a background goroutine so a large prune never stalls
// the next move's search start.
type Tree struct {
	mu        sync.Mutex
	root      *Node
	rootState board.Position

	nodeCount atomic.Int64
	budget    int64

	destroyWG sync.WaitGroup

	Logger *log.Logger
}

// NewTree builds a Tree rooted at an empty Node for the given starting
// state, with the given node budget (config.Config.MaxTreeNodes).
func NewTree(state board.Position, budget int) *Tree {
	t := &Tree{
		root:      &Node{status: int32(Active)},
		rootState: state.Clone(),
		budget:    int64(budget),
		Logger:    log.New(io.Discard, "", 0),
	}
	t.nodeCount.Store(1)
	return t
}

// Root returns the current root node and the position it corresponds to.
func (t *Tree) Root() (*Node, board.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root, t.rootState
}

// NodeCount returns the live node count, used by the memory-pressure
// curve (MinPsaRatio).
func (t *Tree) NodeCount() int64 { return t.nodeCount.Load() }

// NoteNodesCreated must be called by anything that adds child slots
// under this tree (the search loop, after a successful CreateChildren,
// passes len(Children())) so NodeCount stays accurate. Each slot counts
// as one node whether or not it has been inflated.
func (t *Tree) NoteNodesCreated(n int64) { t.nodeCount.Add(n) }

// MinPsaRatio implements the asymmetric memory-pressure curve: cheap
// memory is spent freely, and expansion is progressively pinched only as
// the tree approaches its budget.
func (t *Tree) MinPsaRatio() float32 {
	if t.budget <= 0 {
		return 0
	}
	fill := float64(t.NodeCount()) / float64(t.budget)
	switch {
	case fill < 0.50:
		return 0.000
	case fill < 0.95:
		return 0.001
	case fill < 1.00:
		return 0.010
	default:
		return 2.000
	}
}

// AdvanceRoot replays move against the tree: if the current root already
// has an inflated child for move (its status is not checked), that
// child's subtree becomes
// the new root (re-rooting); its siblings are handed to background
// destruction. Otherwise a fresh root is allocated for newState and the
// entire previous tree is handed to background destruction.
func (t *Tree) AdvanceRoot(move board.Move, newState board.Position) {
	t.mu.Lock()
	oldRoot := t.root
	var reused *Node
	var discarded []*Node
	if oldRoot.HasChildren() {
		for _, c := range oldRoot.Children() {
			cn := c.ptr.Load()
			if cn == nil {
				continue
			}
			if cn.move == move && reused == nil {
				reused = cn
				continue
			}
			discarded = append(discarded, cn)
		}
	}

	if reused != nil {
		t.root = reused
	} else {
		t.root = &Node{status: int32(Active)}
		discarded = append(discarded, oldRoot)
	}
	t.rootState = newState.Clone()
	t.mu.Unlock()

	t.destroyAsync(discarded)
}

// Reset discards the entire tree and starts over at state, e.g. on a GTP
// clear_board.
func (t *Tree) Reset(state board.Position) {
	t.mu.Lock()
	old := t.root
	t.root = &Node{status: int32(Active)}
	t.rootState = state.Clone()
	t.mu.Unlock()
	t.destroyAsync([]*Node{old})
}

// destroyAsync walks the given subtrees on a background goroutine,
// decrementing the live node count for each node found. Go's garbage
// collector reclaims the memory itself once these nodes become
// unreachable; this walk exists purely to keep NodeCount (and therefore
// MinPsaRatio) accurate without making the caller (typically the thread
// that just finished a move) pay for a potentially huge subtree walk.
func (t *Tree) destroyAsync(roots []*Node) {
	if len(roots) == 0 {
		return
	}
	t.destroyWG.Add(1)
	go func() {
		defer t.destroyWG.Done()
		var count int64
		for _, r := range roots {
			count += countSubtree(r)
		}
		t.nodeCount.Add(-count)
	}()
}

func countSubtree(n *Node) int64 {
	if n == nil {
		return 0
	}
	var total int64 = 1
	for _, c := range n.children {
		if cn := c.ptr.Load(); cn != nil {
			total += countSubtree(cn)
		} else {
			total++ // an uninflated slot was counted at creation too
		}
	}
	return total
}

// WaitForDestruction blocks until all background destruction goroutines
// started so far have finished. Exposed for deterministic tests and for
// a clean shutdown path.
func (t *Tree) WaitForDestruction() { t.destroyWG.Wait() }
