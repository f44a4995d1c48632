package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playroom/internal/config"
	"playroom/internal/random"
)

func newTestGomoku() *Gomoku {
	return NewGomoku(config.DefaultGames().Gomoku, random.New(), testLogger())
}

func TestGomokuJoinCapacity(t *testing.T) {
	co := newTestGomoku()

	code, err := co.Create(alice)
	require.NoError(t, err)

	snap, err := co.Join(bob, code)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)

	_, err = co.Join(carol, code)
	assert.Equal(t, ErrRoomFull, err)
}

func TestGomokuStoneAssignment(t *testing.T) {
	co := newTestGomoku()

	code, err := co.Create(alice)
	require.NoError(t, err)
	snap, err := co.Join(bob, code)
	require.NoError(t, err)

	stones := map[string]Stone{}
	for _, p := range snap.Players {
		stones[p.UserID] = p.Stone
	}
	assert.Equal(t, StoneBlack, stones[alice.UserID])
	assert.Equal(t, StoneWhite, stones[bob.UserID])
}

func TestGomokuStartRequiresTwo(t *testing.T) {
	co := newTestGomoku()

	code, err := co.Create(alice)
	require.NoError(t, err)

	assert.Equal(t, ErrNeedTwoPlayers, co.Start(alice, code))

	_, err = co.Join(bob, code)
	require.NoError(t, err)

	assert.Equal(t, ErrHostOnly, co.Start(bob, code))
	require.NoError(t, co.Start(alice, code))
}

func TestGomokuFiveInARow(t *testing.T) {
	co := newTestGomoku()

	code, err := co.Create(alice)
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code))

	// Black builds a horizontal row at 112..116 while White wastes
	// moves along the top edge.
	blackMoves := []int{112, 113, 114, 115, 116}
	whiteMoves := []int{0, 1, 2, 3}

	for i := 0; i < 4; i++ {
		result, err := co.Move(alice, code, blackMoves[i])
		require.NoError(t, err)
		assert.False(t, result.Ended)

		result, err = co.Move(bob, code, whiteMoves[i])
		require.NoError(t, err)
		assert.False(t, result.Ended)
	}

	result, err := co.Move(alice, code, blackMoves[4])
	require.NoError(t, err)
	assert.True(t, result.Ended)
	assert.False(t, result.Draw)

	snap, err := co.Snapshot(alice, code)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, snap.Status)
	require.NotNil(t, snap.WinnerUserID)
	assert.Equal(t, alice.UserID, *snap.WinnerUserID)
	require.NotNil(t, snap.WinnerStone)
	assert.Equal(t, "B", *snap.WinnerStone)
	require.NotNil(t, snap.LastMoveIndex)
	assert.Equal(t, 116, *snap.LastMoveIndex)

	_, err = co.Move(bob, code, 5)
	assert.Equal(t, ErrNotPlaying, err)
}

func TestGomokuVerticalAndDiagonalWins(t *testing.T) {
	co := newTestGomoku()

	cases := []struct {
		name  string
		black []int
		white []int
	}{
		{
			name:  "vertical",
			black: []int{7, 22, 37, 52, 67}, // column 7, rows 0-4
			white: []int{0, 1, 2, 3},
		},
		{
			name:  "southeast diagonal",
			black: []int{0, 16, 32, 48, 64},
			white: []int{1, 2, 3, 4},
		},
		{
			name:  "southwest diagonal",
			black: []int{14, 28, 42, 56, 70},
			white: []int{0, 1, 2, 3},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := co.Create(alice)
			require.NoError(t, err)
			_, err = co.Join(bob, code)
			require.NoError(t, err)
			require.NoError(t, co.Start(alice, code))

			for i := 0; i < 4; i++ {
				_, err := co.Move(alice, code, tc.black[i])
				require.NoError(t, err)
				_, err = co.Move(bob, code, tc.white[i])
				require.NoError(t, err)
			}

			result, err := co.Move(alice, code, tc.black[4])
			require.NoError(t, err)
			assert.True(t, result.Ended)
		})
	}
}

func TestGomokuMoveValidation(t *testing.T) {
	co := newTestGomoku()

	code, err := co.Create(alice)
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)

	_, err = co.Move(alice, code, 0)
	assert.Equal(t, ErrNotPlaying, err)

	require.NoError(t, co.Start(alice, code))

	_, err = co.Move(carol, code, 0)
	assert.Equal(t, ErrNotInRoom, err)
	_, err = co.Move(bob, code, 0)
	assert.Equal(t, ErrNotYourTurn, err)
	_, err = co.Move(alice, code, -1)
	assert.Equal(t, ErrInvalidIndex, err)
	_, err = co.Move(alice, code, 225)
	assert.Equal(t, ErrInvalidIndex, err)

	_, err = co.Move(alice, code, 0)
	require.NoError(t, err)
	_, err = co.Move(bob, code, 0)
	assert.Equal(t, ErrOccupied, err)
}

func TestGomokuForfeitOnLeave(t *testing.T) {
	co := newTestGomoku()

	code, err := co.Create(alice)
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code))

	require.NoError(t, co.Leave(alice, code))

	snap, err := co.Snapshot(bob, code)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, snap.Status)
	require.NotNil(t, snap.WinnerUserID)
	assert.Equal(t, bob.UserID, *snap.WinnerUserID)
	require.NotNil(t, snap.HostUserID)
	assert.Equal(t, bob.UserID, *snap.HostUserID)
}

func TestGomokuNoEdgeWrapInWinScan(t *testing.T) {
	co := newTestGomoku()

	code, err := co.Create(alice)
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code))

	// Black stones 12, 13, 14 end row 0; 15, 16 start row 1. A scan
	// that wrapped across the edge would see five in a row.
	blackMoves := []int{12, 13, 14, 15, 16}
	whiteMoves := []int{100, 101, 102, 103}

	for i := 0; i < 4; i++ {
		_, err := co.Move(alice, code, blackMoves[i])
		require.NoError(t, err)
		_, err = co.Move(bob, code, whiteMoves[i])
		require.NoError(t, err)
	}

	result, err := co.Move(alice, code, blackMoves[4])
	require.NoError(t, err)
	assert.False(t, result.Ended, "a row must not wrap around the board edge")
}
