// Package timemgr implements a per-color time manager: absolute main
// time, Canadian overtime (stones per period) and Japanese byo-yomi
// (periods of fixed seconds), all tracked in centiseconds.
//
// Grounded on leela-zero's TimeControl.{h,cpp}: a clockState per color,
// the max_time_for_move branch structure, and the fixed showboard string
// format.
package timemgr

import (
	"fmt"
	"time"

	"github.com/gozero/engine/board"
)

// System selects which overtime family is in effect, mirroring
// TimeControl's constructor argument shape (byostones xor byoperiods).
type System int

const (
	// Absolute has no stones/periods overtime. MaxTimeForMove returns the
	// effectively unlimited one-month budget only when an overtime length
	// is set with neither stones nor periods (TimeControl::max_time_for_move's
	// "no periods or stones -> 1 month" branch); with no overtime at all
	// the budget is remaining main time split across expected moves.
	Absolute System = iota
	Canadian
	ByoYomi
)

// clockState is the per-color mutable clock, keyed by board.Color.
type clockState struct {
	remainingCentis int
	stonesLeft      int
	periodsLeft     int
	inOvertime      bool
	startedAt       time.Time
}

// Control tracks both colors' clocks for one game (TimeControl).
type Control struct {
	system   System
	mainCentis   int
	overtimeCentis int // byotime
	stones       int // byostones
	periods      int // byoperiods

	lagBufferCentis int

	clocks [2]clockState // indexed by board.Black/board.White
}

// New builds a Control. mainCentis/overtimeCentis/stones/periods are all
// in centiseconds/count, matching TimeControl's constructor
// (maintime, byotime, byostones, byoperiods).
func New(system System, mainCentis, overtimeCentis, stones, periods, lagBufferCentis int) *Control {
	c := &Control{
		system:         system,
		mainCentis:     mainCentis,
		overtimeCentis: overtimeCentis,
		stones:         stones,
		periods:        periods,
		lagBufferCentis: lagBufferCentis,
	}
	c.ResetClocks()
	return c
}

// ResetClocks reinitializes both clocks to full main time (or straight
// into overtime if mainCentis <= 0), per TimeControl::reset_clocks.
func (c *Control) ResetClocks() {
	for _, color := range []board.Color{board.Black, board.White} {
		cs := &c.clocks[color]
		cs.remainingCentis = c.mainCentis
		cs.stonesLeft = c.stones
		cs.periodsLeft = c.periods
		cs.inOvertime = c.mainCentis <= 0
		if cs.inOvertime {
			cs.remainingCentis = c.overtimeCentis
		}
	}
}

// Start records the clock-start timestamp for color (TimeControl::start).
func (c *Control) Start(color board.Color) {
	c.clocks[color].startedAt = nowFunc()
}

// nowFunc exists so tests can substitute a deterministic clock.
var nowFunc = time.Now

// Stop charges elapsed time against color's clock and applies overtime
// bookkeeping, per TimeControl::stop.
func (c *Control) Stop(color board.Color) {
	cs := &c.clocks[color]
	elapsed := int(nowFunc().Sub(cs.startedAt) / (10 * time.Millisecond))
	cs.remainingCentis -= elapsed

	if cs.inOvertime {
		switch c.system {
		case Canadian:
			cs.stonesLeft--
		case ByoYomi:
			if elapsed > c.overtimeCentis {
				cs.periodsLeft--
			}
		}
	}

	switch {
	case !cs.inOvertime && cs.remainingCentis <= 0:
		cs.remainingCentis = c.overtimeCentis
		cs.stonesLeft = c.stones
		cs.periodsLeft = c.periods
		cs.inOvertime = true
	case cs.inOvertime && c.system == Canadian && cs.stonesLeft <= 0:
		cs.remainingCentis = c.overtimeCentis
		cs.stonesLeft = c.stones
	case cs.inOvertime && c.system == ByoYomi:
		cs.remainingCentis = c.overtimeCentis
	}
}

// MovesExpected estimates how many more moves color will need to make in
// the current time regime, per TimeControl::get_moves_expected /
// opening_moves. The divisor is 9 with time management on (fewer expected
// moves, so a bigger base time estimate, which is fine since search exits
// early anyway) or 5 when time management is off.
func MovesExpected(boardArea, moveNumber int, timeManagementOn bool) int {
	boardDiv := 5
	if timeManagementOn {
		boardDiv = 9
	}
	baseRemaining := boardArea / boardDiv
	fastMoves := OpeningMoves(boardArea)
	if moveNumber < fastMoves {
		return (baseRemaining + fastMoves) - moveNumber
	}
	return baseRemaining
}

// OpeningMoves returns the number of "fast" opening moves that get an
// enlarged time budget (TimeControl::opening_moves: boardArea / 6).
func OpeningMoves(boardArea int) int {
	return boardArea / 6
}

// infiniteCentis stands in for TimeControl::max_time_for_move's literal
// "31 * 24 * 60 * 60 * 100" (one month in centiseconds).
const infiniteCentis = 31 * 24 * 60 * 60 * 100

// MaxTimeForMove computes the per-move budget in centiseconds for color,
// per TimeControl::max_time_for_move.
func (c *Control) MaxTimeForMove(boardArea int, color board.Color, moveNumber int, timeManagementOn bool) int {
	cs := &c.clocks[color]
	timeRemaining := cs.remainingCentis
	movesRemaining := MovesExpected(boardArea, moveNumber, timeManagementOn)
	extraTimePerMove := 0

	if c.overtimeCentis != 0 {
		if c.stones == 0 && c.periods == 0 {
			return infiniteCentis
		}
		switch {
		case cs.inOvertime && c.system == Canadian:
			movesRemaining = cs.stonesLeft
		case cs.inOvertime && c.system == ByoYomi:
			timeRemaining = 0
			extraTimePerMove = c.overtimeCentis
		case !cs.inOvertime && c.system == Canadian:
			byoExtra := c.overtimeCentis / c.stones
			timeRemaining = cs.remainingCentis + byoExtra
			extraTimePerMove = byoExtra
		case !cs.inOvertime && c.system == ByoYomi:
			byoExtra := c.overtimeCentis * (cs.periodsLeft - 1)
			timeRemaining = cs.remainingCentis + byoExtra
			extraTimePerMove = c.overtimeCentis
		}
	}

	baseTime := maxInt(timeRemaining-c.lagBufferCentis, 0) / maxInt(movesRemaining, 1)
	incTime := maxInt(extraTimePerMove-c.lagBufferCentis, 0)
	return baseTime + incTime
}

// CanAccumulateTime reports whether color's time regime allows "saving
// up" time by moving quickly, per TimeControl::can_accumulate_time. The
// search's non-contender pruning uses this to decide whether having no
// alternative moves left alone justifies stopping early.
func (c *Control) CanAccumulateTime(color board.Color) bool {
	cs := &c.clocks[color]
	if cs.inOvertime {
		if c.system == ByoYomi {
			return false
		}
		if c.system == Canadian && cs.stonesLeft == 1 {
			return false
		}
	}
	return true
}

// AdjustTime implements the GTP time_left-style correction
// (TimeControl::adjust_time): the client tells us authoritatively how
// much time and how many stones/periods remain.
func (c *Control) AdjustTime(color board.Color, timeCentis, stones int) {
	cs := &c.clocks[color]
	cs.remainingCentis = timeCentis
	if timeCentis == 0 && stones == 0 {
		cs.inOvertime = true
		cs.remainingCentis = c.overtimeCentis
		cs.stonesLeft = c.stones
		cs.periodsLeft = c.periods
	}
	if stones != 0 {
		cs.inOvertime = true
	}
	// A "0 0" report already reset stones/periods to a full overtime
	// allotment above; only a real count overrides them.
	if cs.inOvertime && !(timeCentis == 0 && stones == 0) {
		switch c.system {
		case Canadian:
			cs.stonesLeft = stones
		case ByoYomi:
			cs.periodsLeft = stones
		}
	}
}

// DisplayColorTime renders the same fixed text as
// TimeControl::display_color_time.
func (c *Control) DisplayColorTime(color board.Color) string {
	cs := &c.clocks[color]
	remSeconds := cs.remainingCentis / 100
	hours := remSeconds / 3600
	minutes := (remSeconds % 3600) / 60
	seconds := remSeconds % 60
	name := "Black"
	if color == board.White {
		name = "White"
	}
	s := fmt.Sprintf("%s time: %02d:%02d:%02d", name, hours, minutes, seconds)
	if cs.inOvertime {
		switch c.system {
		case Canadian:
			s += fmt.Sprintf(", %d stones left", cs.stonesLeft)
		case ByoYomi:
			s += fmt.Sprintf(", %d period(s) of %d seconds left", cs.periodsLeft, c.overtimeCentis/100)
		}
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
