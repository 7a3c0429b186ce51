// Command selfplay drives one self-play game on a small Go board using
// the reference (untrained) network, the way a training pipeline would
// drive game generation before any real weights exist. It prints each
// move, the final score and the number of training examples (mover,
// policy, outcome) it collected; the examples themselves are not written
// out.
//
// Grounded on Elvenson-alphabeth/arena.go's Play: same structure (loop
// until Ended, collect an Example per move, backfill Value from the
// final winner once the game ends) generalized from a two-agent
// best-vs-current arena to a single self-play driver over board.Position.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gozero/engine/board"
	"github.com/gozero/engine/cache"
	"github.com/gozero/engine/config"
	"github.com/gozero/engine/eval"
	"github.com/gozero/engine/mcts"
)

var (
	boardSize   = flag.Int("board_size", 9, "board edge length")
	komi        = flag.Float64("komi", 7.5, "komi awarded to White")
	moveBudget  = flag.Duration("move_time", 200*time.Millisecond, "thinking time per move")
	maxMoves    = flag.Int("max_moves", 2*9*9, "hard cap on move count, to bound a game with an untrained network")
	seed        = flag.Uint64("seed", 1, "base RNG seed")
	verbose     = flag.Bool("verbose", true, "print each move")
)

// example is one training sample: the side to move, the visit-count
// policy target, and the eventual game outcome from the mover's
// perspective (filled in once the game ends). No position encoding is
// kept.
type example struct {
	mover  board.Color
	policy []float32
	value  float32
}

func main() {
	flag.Parse()

	cfg := config.Default()
	cfg.Seed = *seed
	cfg.NumSearchThreads = 2
	handle := config.NewHandle(cfg)

	state := board.NewGoBoard(*boardSize, float32(*komi), *seed)
	actionSpace := state.ActionSpace()

	net := eval.NewSynchronous(eval.ForwardFunc(eval.NewReferenceNetwork(actionSpace).Forward))
	evalCache := cache.New(0)
	evalCache.SetSizeFromPlayouts(cfg.MaxPlayouts)

	tree := mcts.NewTree(state, cfg.MaxTreeNodes)
	search := mcts.NewSearch(tree, handle, net, board.Encode, evalCache, nil)

	var examples []example
	var cur board.Position = state
	ctx := context.Background()

	moveNum := 0
	for moveNum = 0; moveNum < *maxMoves; moveNum++ {
		if ended, _ := cur.Ended(); ended {
			break
		}
		outcome := search.Think(ctx, cur, *moveBudget)
		if outcome.Resigned {
			if *verbose {
				log.Printf("move %d: %v resigns", moveNum, cur.Turn())
			}
			break
		}

		root, _ := tree.Root()
		examples = append(examples, example{
			mover:  cur.Turn(),
			policy: root.VisitPolicy(actionSpace),
		})

		if *verbose {
			log.Printf("move %d: %v plays %d (playouts=%d, elapsed=%s)",
				moveNum, cur.Turn(), outcome.Move, outcome.Playouts, outcome.ElapsedTime)
		}

		next := cur.Play(outcome.Move)
		tree.AdvanceRoot(outcome.Move, next)
		cur = next
	}

	ended, winner := cur.Ended()
	if !ended {
		// Move cap or resignation: score the final position directly.
		bs, ws := cur.Score(board.Black), cur.Score(board.White)
		switch {
		case bs > ws:
			winner = board.Black
		case ws > bs:
			winner = board.White
		default:
			winner = board.NoColor
		}
	}

	for i := range examples {
		switch {
		case winner == board.NoColor:
			examples[i].value = 0
		case examples[i].mover == winner:
			examples[i].value = 1
		default:
			examples[i].value = -1
		}
	}

	fmt.Printf("game over after %d moves, winner=%v, black=%.1f white=%.1f\n",
		moveNum, winner, cur.Score(board.Black), cur.Score(board.White))
	fmt.Printf("collected %d training examples\n", len(examples))

	tree.WaitForDestruction()
}
