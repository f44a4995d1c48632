package game

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playroom/internal/random"
)

func newTestMemory() *Memory {
	return NewMemory(testMemorySettings(), random.New(), testLogger())
}

// sortDeck reorders the room's cards so pairs sit adjacent, which makes
// picks deterministic without touching the deck's contents.
func sortDeck(r *MemoryRoom) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(r.Cards, func(i, j int) bool {
		return r.Cards[i].CountryKey < r.Cards[j].CountryKey
	})
}

func TestMemoryCreateValidatesCardCount(t *testing.T) {
	co := newTestMemory()

	_, err := co.Create(alice, MemoryOptions{CardCount: 21})
	assert.Equal(t, ErrInvalidCardCount, err)

	_, err = co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
}

func TestMemoryDeckConstruction(t *testing.T) {
	co := newTestMemory()

	code, err := co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code, MemoryStartOptions{}))

	r, ok := co.rooms.Get(code)
	require.True(t, ok)

	r.mu.Lock()
	defer r.mu.Unlock()

	require.Len(t, r.Cards, 20)
	keys := map[string]int{}
	uids := map[string]bool{}
	for _, c := range r.Cards {
		keys[c.CountryKey]++
		uids[c.UID] = true
		assert.False(t, c.Matched)
		assert.NotEmpty(t, c.Flag)
		assert.NotEmpty(t, c.NameKo)
	}
	assert.Len(t, keys, 10)
	for key, n := range keys {
		assert.Equal(t, 2, n, "country %s should appear exactly twice", key)
	}
	assert.Len(t, uids, 20, "card uids must be distinct")
}

func TestMemoryMismatchResolvesAfterDelay(t *testing.T) {
	co := newTestMemory()

	code, err := co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code, MemoryStartOptions{}))

	r, ok := co.rooms.Get(code)
	require.True(t, ok)
	sortDeck(r)

	// Cards 1 and 2 straddle a pair boundary after sorting.
	result, err := co.Pick(alice, code, 1)
	require.NoError(t, err)
	assert.Nil(t, result.Matched, "first card of a pair reports nothing")

	result, err = co.Pick(alice, code, 2)
	require.NoError(t, err)
	require.NotNil(t, result.Matched)
	assert.False(t, *result.Matched)

	snap, err := co.Snapshot(alice, code)
	require.NoError(t, err)
	assert.True(t, snap.Resolving)
	assert.ElementsMatch(t, []int{1, 2}, snap.RevealedIndices)
	assert.True(t, snap.Cards[1].Visible)
	assert.True(t, snap.Cards[2].Visible)

	// Further picks are rejected while the mismatch is on display.
	_, err = co.Pick(alice, code, 3)
	assert.Equal(t, ErrResolving, err)

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return !r.Resolving
	}, time.Second, 5*time.Millisecond)

	snap, err = co.Snapshot(alice, code)
	require.NoError(t, err)
	assert.Empty(t, snap.RevealedIndices)
	assert.False(t, snap.Cards[1].Visible)
	require.NotNil(t, snap.TurnUserID)
	assert.Equal(t, bob.UserID, *snap.TurnUserID, "mismatch passes the turn")
}

func TestMemoryMatchKeepsTurnAndEndsGame(t *testing.T) {
	co := newTestMemory()

	code, err := co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code, MemoryStartOptions{}))

	r, ok := co.rooms.Get(code)
	require.True(t, ok)
	sortDeck(r)

	// Alice clears the whole board pair by pair, keeping the turn on
	// every match.
	for pair := 0; pair < 10; pair++ {
		first, second := pair*2, pair*2+1

		result, err := co.Pick(alice, code, first)
		require.NoError(t, err)
		assert.Nil(t, result.Matched)

		result, err = co.Pick(alice, code, second)
		require.NoError(t, err)
		require.NotNil(t, result.Matched)
		assert.True(t, *result.Matched)

		if pair < 9 {
			assert.False(t, result.Ended)
			snap, err := co.Snapshot(alice, code)
			require.NoError(t, err)
			require.NotNil(t, snap.TurnUserID)
			assert.Equal(t, alice.UserID, *snap.TurnUserID)
		} else {
			assert.True(t, result.Ended)
		}
	}

	snap, err := co.Snapshot(alice, code)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, snap.Status)
	assert.Equal(t, 10, snap.MatchedCount)
	require.Len(t, snap.Winners, 1)
	assert.Equal(t, alice.UserID, snap.Winners[0].UserID)
	assert.Equal(t, 10, snap.Winners[0].Score)

	_, err = co.Pick(alice, code, 0)
	assert.Equal(t, ErrNotPlaying, err)
}

func TestMemoryPickValidation(t *testing.T) {
	co := newTestMemory()

	code, err := co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)

	_, err = co.Pick(alice, code, 0)
	assert.Equal(t, ErrNotPlaying, err)

	require.NoError(t, co.Start(alice, code, MemoryStartOptions{}))

	_, err = co.Pick(carol, code, 0)
	assert.Equal(t, ErrNotInRoom, err)
	_, err = co.Pick(bob, code, 0)
	assert.Equal(t, ErrNotYourTurn, err)
	_, err = co.Pick(alice, code, -1)
	assert.Equal(t, ErrInvalidIndex, err)
	_, err = co.Pick(alice, code, 20)
	assert.Equal(t, ErrInvalidIndex, err)

	_, err = co.Pick(alice, code, 0)
	require.NoError(t, err)
	_, err = co.Pick(alice, code, 0)
	assert.Equal(t, ErrAlreadyRevealed, err)
}

func TestMemoryAlreadyMatchedRejected(t *testing.T) {
	co := newTestMemory()

	code, err := co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code, MemoryStartOptions{}))

	r, ok := co.rooms.Get(code)
	require.True(t, ok)
	sortDeck(r)

	_, err = co.Pick(alice, code, 0)
	require.NoError(t, err)
	result, err := co.Pick(alice, code, 1)
	require.NoError(t, err)
	require.NotNil(t, result.Matched)
	require.True(t, *result.Matched)

	_, err = co.Pick(alice, code, 0)
	assert.Equal(t, ErrAlreadyMatched, err)
}

func TestMemoryCardFacesHiddenUntilRevealed(t *testing.T) {
	co := newTestMemory()

	code, err := co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code, MemoryStartOptions{}))

	snap, err := co.Snapshot(alice, code)
	require.NoError(t, err)
	for _, c := range snap.Cards {
		assert.False(t, c.Visible)
		assert.Nil(t, c.CountryKey)
		assert.Nil(t, c.Flag)
		assert.Nil(t, c.NameKo)
	}

	_, err = co.Pick(alice, code, 5)
	require.NoError(t, err)

	snap, err = co.Snapshot(alice, code)
	require.NoError(t, err)
	assert.True(t, snap.Cards[5].Visible)
	assert.NotNil(t, snap.Cards[5].CountryKey)
	assert.False(t, snap.Cards[4].Visible)
}

func TestMemoryLeaveDuringResolvingSettlesFirst(t *testing.T) {
	co := newTestMemory()

	code, err := co.Create(alice, MemoryOptions{CardCount: 20})
	require.NoError(t, err)
	_, err = co.Join(bob, code)
	require.NoError(t, err)
	require.NoError(t, co.Start(alice, code, MemoryStartOptions{}))

	r, ok := co.rooms.Get(code)
	require.True(t, ok)
	sortDeck(r)

	_, err = co.Pick(alice, code, 1)
	require.NoError(t, err)
	result, err := co.Pick(alice, code, 2)
	require.NoError(t, err)
	require.NotNil(t, result.Matched)
	require.False(t, *result.Matched)

	// Alice walks out mid-resolution; the mismatch settles immediately
	// and the turn lands on bob.
	require.NoError(t, co.Leave(alice, code))

	snap, err := co.Snapshot(bob, code)
	require.NoError(t, err)
	assert.False(t, snap.Resolving)
	assert.Empty(t, snap.RevealedIndices)
	require.NotNil(t, snap.TurnUserID)
	assert.Equal(t, bob.UserID, *snap.TurnUserID)
	assert.Len(t, snap.Players, 1)
}
