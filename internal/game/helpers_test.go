package game

import (
	"io"
	"log/slog"
	"time"

	"playroom/internal/config"
	"playroom/internal/identity"
)

// stubSource replays a fixed sequence of draws, then returns 0. Room
// code generation consumes six draws per create; tests that need a
// deterministic in-game draw prepend those.
type stubSource struct {
	vals []int
	i    int
}

func (s *stubSource) Intn(n int) int {
	if s.i < len(s.vals) {
		v := s.vals[s.i]
		s.i++
		if v >= n {
			return n - 1
		}
		return v
	}
	return 0
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBingoSettings() config.BingoSettings {
	cfg := config.DefaultGames().Bingo
	cfg.BotMoveDelay = 10 * time.Millisecond
	return cfg
}

func testMemorySettings() config.MemorySettings {
	cfg := config.DefaultGames().Memory
	cfg.ResolveDelay = 20 * time.Millisecond
	return cfg
}

var (
	alice = identity.Identity{UserID: "u-alice", Username: "alice"}
	bob   = identity.Identity{UserID: "u-bob", Username: "bob"}
	carol = identity.Identity{UserID: "u-carol", Username: "carol"}
)

// identityBoard lays the numbers 1..size² out row-major, which makes
// line completion easy to reason about in tests.
func identityBoard(size int) [][]int {
	board := make([][]int, size)
	n := 1
	for row := range board {
		board[row] = make([]int, size)
		for col := range board[row] {
			board[row][col] = n
			n++
		}
	}
	return board
}

// swapValues exchanges two values inside a board, preserving the
// permutation property.
func swapValues(board [][]int, a, b int) {
	var pa, pb [2]int
	for r, row := range board {
		for c, v := range row {
			if v == a {
				pa = [2]int{r, c}
			}
			if v == b {
				pb = [2]int{r, c}
			}
		}
	}
	board[pa[0]][pa[1]], board[pb[0]][pb[1]] = b, a
}
