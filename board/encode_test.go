package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeMarksOwnAndOpponentStonePlanes(t *testing.T) {
	b := NewGoBoard(3, 0, 1)
	b.Play(Move(4)) // Black plays center
	// White to move now; White's own-stone plane must be empty, Black's
	// stone must show up in the opponent plane.
	planes := Encode(b)
	backing := planes.Backing()
	n := 9

	require.Equal(t, float32(0), backing[4], "white has no stones of its own yet")
	require.Equal(t, float32(1), backing[n+4], "black's center stone must appear in the opponent plane")
}

func TestEncodeSideToMovePlaneIsAllOnesForBlack(t *testing.T) {
	b := NewGoBoard(3, 0, 1)
	planes := Encode(b)
	backing := planes.Backing()
	n := 9
	for p := 0; p < n; p++ {
		require.Equal(t, float32(1), backing[2*n+p])
	}
}

func TestEncodeSideToMovePlaneIsAllZerosForWhite(t *testing.T) {
	b := NewGoBoard(3, 0, 1)
	b.Play(Move(0)) // Black moves, White to move
	planes := Encode(b)
	backing := planes.Backing()
	n := 9
	for p := 0; p < n; p++ {
		require.Equal(t, float32(0), backing[2*n+p])
	}
}

func TestEncodeMoveFractionPlaneTracksMoveNumber(t *testing.T) {
	b := NewGoBoard(3, 0, 1)
	b.Play(Move(0))
	b.Play(Move(1))
	planes := Encode(b)
	backing := planes.Backing()
	n := 9
	expected := float32(b.MoveNumber()%200) / 200.0
	for p := 0; p < n; p++ {
		require.Equal(t, expected, backing[3*n+p])
	}
}
