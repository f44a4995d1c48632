package game

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a room. Transitions only move
// forward: lobby -> playing -> ended.
type Status string

const (
	StatusLobby   Status = "lobby"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// PlayerInfo holds the fields every game's player record shares.
type PlayerInfo struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
	Online   bool      `json:"online"`
}

// Base carries the room state shared by all four games: code, status,
// host, the turn cursor, presence reference counts and the subscriber
// set. Every room embeds Base and is serialized by its mutex; all
// methods below expect the lock to be held.
type Base struct {
	Code       string
	Status     Status
	HostUserID string
	CreatedAt  time.Time

	TurnOrder  []string
	TurnCursor int

	subscribers map[*subscriber]struct{}
	connections map[string]int

	timer    *time.Timer
	timerSeq uint64

	mu sync.Mutex
}

func newBase(code string) Base {
	return Base{
		Code:        code,
		Status:      StatusLobby,
		CreatedAt:   time.Now().UTC(),
		subscribers: make(map[*subscriber]struct{}),
		connections: make(map[string]int),
	}
}

// turnUser derives the user holding the turn from the cursor. Empty
// when not playing or the order is empty.
func (b *Base) turnUser() string {
	if b.Status != StatusPlaying || len(b.TurnOrder) == 0 {
		return ""
	}
	return b.TurnOrder[b.TurnCursor%len(b.TurnOrder)]
}

// startTurnOrder snapshots the given ids as the turn order, cursor at 0.
func (b *Base) startTurnOrder(ids []string) {
	b.TurnOrder = append([]string(nil), ids...)
	b.TurnCursor = 0
}

// advanceTurn moves the cursor to the next player.
func (b *Base) advanceTurn() {
	if len(b.TurnOrder) == 0 {
		return
	}
	b.TurnCursor = (b.TurnCursor + 1) % len(b.TurnOrder)
}

// dropFromTurnOrder removes userID from the turn order, keeping the
// cursor on the player whose turn it is (or clamped into range when the
// leaver held the turn). Returns true when the order became empty.
func (b *Base) dropFromTurnOrder(userID string) bool {
	idx := -1
	for i, id := range b.TurnOrder {
		if id == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return len(b.TurnOrder) == 0
	}

	b.TurnOrder = append(b.TurnOrder[:idx], b.TurnOrder[idx+1:]...)
	if len(b.TurnOrder) == 0 {
		b.TurnCursor = 0
		return true
	}
	if idx < b.TurnCursor {
		b.TurnCursor--
	}
	b.TurnCursor %= len(b.TurnOrder)
	return false
}

// online reports the presence flag derived from the connection count.
func (b *Base) online(userID string) bool {
	return b.connections[userID] > 0
}

// schedule arms the room's deferred task, cancelling any outstanding
// one. The callback receives the generation it was armed with and must
// re-acquire the room lock and verify the generation (and status)
// before mutating anything.
func (b *Base) schedule(d time.Duration, fn func(seq uint64)) {
	b.cancelTimer()
	seq := b.timerSeq
	b.timer = time.AfterFunc(d, func() { fn(seq) })
}

// cancelTimer invalidates the outstanding deferred task, if any. Any
// mutation that changes the current turn must call this first.
func (b *Base) cancelTimer() {
	b.timerSeq++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// timerValid reports whether a deferred task armed at seq is still the
// current one.
func (b *Base) timerValid(seq uint64) bool {
	return b.timerSeq == seq
}
