package board

import "math/rand"

// GoBoard is a small reference implementation of Position for an NxN Go
// board: stone placement, capture, suicide rejection, positional superko,
// two-consecutive-pass termination and Tromp-Taylor area scoring.
//
// It exists only to drive the rest of this module's tests honestly; a
// full rules engine is out of scope, and it does not attempt to
// reproduce leela-zero's published Zobrist constants bit-for-bit -- the
// only requirement is that the core consume a Position through the
// contract in board.go.
//
// Its history-of-snapshots-plus-pointer design mirrors
// Elvenson-alphabeth/game/chess.go's Chess type (history []chess.Game,
// histPtr int), generalized from a chess library's board to these own
// stone-array snapshots.
type GoBoard struct {
	size  int
	komi  float32
	zob   *zobristTable
	hist  []goState
	ptr   int
}

type goState struct {
	stones     []Color // len size*size, NoColor = empty
	koPoint    int     // -1 if none
	prisoners  [2]int  // indexed by Color
	toMove     Color
	passes     int
	moveNumber int
	hash       uint64
	koHash     uint64
	lastMove   Move
}

type zobristTable struct {
	stone   [][3]uint64 // per point, per Color(Black/White); index 2 unused
	koPoint []uint64
	side    uint64
	passBase uint64
}

func newZobristTable(points int, seed uint64) *zobristTable {
	r := rand.New(rand.NewSource(int64(seed)))
	t := &zobristTable{
		stone:   make([][3]uint64, points),
		koPoint: make([]uint64, points),
	}
	for i := 0; i < points; i++ {
		t.stone[i][Black] = r.Uint64()
		t.stone[i][White] = r.Uint64()
		t.koPoint[i] = r.Uint64()
	}
	t.side = r.Uint64()
	t.passBase = r.Uint64()
	return t
}

// NewGoBoard creates an empty size*size board. seed drives the Zobrist
// table so two boards built with the same seed hash identically,
// including for transposed openings that reach the same stones by a
// different move order.
func NewGoBoard(size int, komi float32, seed uint64) *GoBoard {
	points := size * size
	b := &GoBoard{
		size: size,
		komi: komi,
		zob:  newZobristTable(points, seed),
	}
	s := goState{
		stones:   make([]Color, points),
		koPoint:  -1,
		toMove:   Black,
		lastMove: NoMove,
	}
	for i := range s.stones {
		s.stones[i] = NoColor
	}
	s.koHash = 0
	s.hash = b.computeHash(&s)
	b.hist = []goState{s}
	b.ptr = 0
	return b
}

func (b *GoBoard) cur() *goState { return &b.hist[b.ptr] }

func (b *GoBoard) computeHash(s *goState) uint64 {
	var h uint64
	for i, c := range s.stones {
		if c == Black || c == White {
			h ^= b.zob.stone[i][c]
		}
	}
	koh := h
	if s.koPoint >= 0 {
		h ^= b.zob.koPoint[s.koPoint]
	}
	if s.toMove == Black {
		h ^= b.zob.side
	}
	// Fold prisoner counts in cheaply; only sensitivity to prisoners is
	// required, not a specific mixing function.
	h ^= uint64(s.prisoners[Black])*0x9E3779B97F4A7C15 ^ uint64(s.prisoners[White])*0xC2B2AE3D27D4EB4F
	s.koHash = koh
	return h
}

// ActionSpace returns size*size + 1 (the trailing slot is PASS).
func (b *GoBoard) ActionSpace() int { return b.size*b.size + 1 }

func (b *GoBoard) passIndex() Move { return Move(b.size * b.size) }

func (b *GoBoard) Hash() uint64   { return b.cur().hash }
func (b *GoBoard) KoHash() uint64 { return b.cur().koHash }
func (b *GoBoard) Turn() Color    { return b.cur().toMove }
func (b *GoBoard) MoveNumber() int { return b.cur().moveNumber }
func (b *GoBoard) LastMove() Move { return b.cur().lastMove }

func (b *GoBoard) NNToMove(idx int) Move { return Move(idx) }

// BoardSize returns the board's edge length.
func (b *GoBoard) BoardSize() int { return b.size }

// StoneAt returns the color at intersection p, or NoColor if empty or out
// of range.
func (b *GoBoard) StoneAt(p int) Color {
	s := b.cur()
	if p < 0 || p >= len(s.stones) {
		return NoColor
	}
	return s.stones[p]
}

func neighbors(size, p int) []int {
	x, y := p%size, p/size
	var ns []int
	if x > 0 {
		ns = append(ns, p-1)
	}
	if x < size-1 {
		ns = append(ns, p+1)
	}
	if y > 0 {
		ns = append(ns, p-size)
	}
	if y < size-1 {
		ns = append(ns, p+size)
	}
	return ns
}

// groupLiberties returns the set of points in the group containing p and
// the number of distinct empty liberties it has.
func groupLiberties(size int, stones []Color, p int) (group []int, liberties int) {
	color := stones[p]
	seen := make(map[int]bool)
	libs := make(map[int]bool)
	stack := []int{p}
	seen[p] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, cur)
		for _, n := range neighbors(size, cur) {
			if stones[n] == NoColor {
				libs[n] = true
			} else if stones[n] == color && !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return group, len(libs)
}

// Legal reports whether m is playable by the side to move: in range,
// empty (for a placement), and not suicidal. PASS and RESIGN are always
// legal.
func (b *GoBoard) Legal(m Move) bool {
	if m == b.passIndex() || m == ResignMove {
		return true
	}
	s := b.cur()
	p := int(m)
	if p < 0 || p >= len(s.stones) {
		return false
	}
	if s.stones[p] != NoColor {
		return false
	}
	if p == s.koPoint {
		return false
	}
	// Simulate placement to test suicide.
	trial := append([]Color(nil), s.stones...)
	trial[p] = s.toMove
	opp := s.toMove.Opposite()
	captured := false
	for _, n := range neighbors(b.size, p) {
		if trial[n] == opp {
			_, libs := groupLiberties(b.size, trial, n)
			if libs == 0 {
				captured = true
			}
		}
	}
	if captured {
		return true
	}
	_, libs := groupLiberties(b.size, trial, p)
	return libs > 0
}

// Play returns the resulting position. It mutates b's history (truncating
// any redo-forward states past the current pointer), matching
// game/chess.go's Apply semantics of extending/overwriting history at
// histPtr.
func (b *GoBoard) Play(m Move) Position {
	prev := b.cur()
	next := goState{
		stones:     append([]Color(nil), prev.stones...),
		koPoint:    -1,
		prisoners:  prev.prisoners,
		toMove:     prev.toMove.Opposite(),
		moveNumber: prev.moveNumber + 1,
		lastMove:   m,
	}
	if m == b.passIndex() {
		next.passes = prev.passes + 1
	} else if m == ResignMove {
		next.passes = prev.passes
	} else {
		next.passes = 0
		p := int(m)
		next.stones[p] = prev.toMove
		opp := prev.toMove.Opposite()
		var koCandidate = -1
		capturedStones := 0
		for _, n := range neighbors(b.size, p) {
			if next.stones[n] == opp {
				group, libs := groupLiberties(b.size, next.stones, n)
				if libs == 0 {
					for _, g := range group {
						next.stones[g] = NoColor
					}
					capturedStones += len(group)
					if len(group) == 1 {
						koCandidate = group[0]
					}
				}
			}
		}
		next.prisoners[prev.toMove] += capturedStones
		// Simple-ko point: exactly one stone captured and the playing
		// stone's own group is a single stone with exactly one liberty
		// (the point just vacated).
		if capturedStones == 1 {
			ownGroup, ownLibs := groupLiberties(b.size, next.stones, p)
			if len(ownGroup) == 1 && ownLibs == 1 {
				next.koPoint = koCandidate
			}
		}
	}
	next.hash = b.computeHash(&next)

	b.hist = b.hist[:b.ptr+1]
	b.hist = append(b.hist, next)
	b.ptr++
	return b
}

// SuperKo reports whether the current position's KoHash repeats an
// earlier position's KoHash in this game's history.
func (b *GoBoard) SuperKo() bool {
	cur := b.cur()
	for i := 0; i < b.ptr; i++ {
		if b.hist[i].koHash == cur.koHash {
			return true
		}
	}
	return false
}

// Ended reports the game as over after two consecutive passes. Winner is
// whoever has the higher Score; ties are a draw.
func (b *GoBoard) Ended() (bool, Color) {
	s := b.cur()
	if s.passes < 2 {
		return false, NoColor
	}
	bs, ws := b.Score(Black), b.Score(White)
	if bs > ws {
		return true, Black
	}
	if ws > bs {
		return true, White
	}
	return true, NoColor
}

// Score computes Tromp-Taylor area score (stones + territory) for c, with
// komi added to White's score.
func (b *GoBoard) Score(c Color) float32 {
	s := b.cur()
	area := [2]int{}
	seen := make([]bool, len(s.stones))
	for i, col := range s.stones {
		if col == Black || col == White {
			area[col]++
			continue
		}
		if seen[i] {
			continue
		}
		// Flood fill the empty region, tracking which colors border it.
		var region []int
		borders := map[Color]bool{}
		stack := []int{i}
		seen[i] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			region = append(region, cur)
			for _, n := range neighbors(b.size, cur) {
				if s.stones[n] == NoColor {
					if !seen[n] {
						seen[n] = true
						stack = append(stack, n)
					}
				} else {
					borders[s.stones[n]] = true
				}
			}
		}
		if len(borders) == 1 {
			for owner := range borders {
				area[owner] += len(region)
			}
		}
	}
	if c == White {
		return float32(area[White]) + b.komi
	}
	return float32(area[Black])
}

func (b *GoBoard) UndoLastMove() {
	if b.ptr > 0 {
		b.ptr--
	}
}

func (b *GoBoard) Fwd() {
	if b.ptr < len(b.hist)-1 {
		b.ptr++
	}
}

func (b *GoBoard) Eq(other Position) bool {
	ob, ok := other.(*GoBoard)
	if !ok {
		return false
	}
	return ob.Hash() == b.Hash()
}

// Clone deep-copies the board, including its full undo/redo history, so
// the search can hand a private copy to each playout goroutine and never
// mutate shared board state except via Play/UndoLastMove.
func (b *GoBoard) Clone() Position {
	n := &GoBoard{
		size: b.size,
		komi: b.komi,
		zob:  b.zob, // Zobrist table is immutable and safe to share.
		ptr:  b.ptr,
	}
	n.hist = make([]goState, len(b.hist))
	for i, s := range b.hist {
		n.hist[i] = goState{
			stones:     append([]Color(nil), s.stones...),
			koPoint:    s.koPoint,
			prisoners:  s.prisoners,
			toMove:     s.toMove,
			passes:     s.passes,
			moveNumber: s.moveNumber,
			hash:       s.hash,
			koHash:     s.koHash,
			lastMove:   s.lastMove,
		}
	}
	return n
}
