package game

import (
	"log/slog"
	"time"

	"playroom/internal/config"
	"playroom/internal/identity"
	"playroom/internal/metrics"
	"playroom/internal/random"
	"playroom/internal/store"
)

// Stone is a Gomoku stone color. Black plays first.
type Stone string

const (
	StoneBlack Stone = "B"
	StoneWhite Stone = "W"
)

// GomokuPlayer is one of the two seated players.
type GomokuPlayer struct {
	PlayerInfo
	Stone Stone `json:"stone"`
}

// GomokuRoom is a single Gomoku board. The board is a flat row-major
// array of boardSize² cells, each empty or holding a stone.
type GomokuRoom struct {
	Base

	BoardSize int
	Board     []Stone

	WinnerUserID   string
	WinnerUsername string
	WinnerStone    Stone
	Draw           bool

	LastMoveIndex    int // -1 when no move yet
	LastMoveByUserID string

	Players []*GomokuPlayer
}

func (r *GomokuRoom) findPlayer(userID string) *GomokuPlayer {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *GomokuRoom) playerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (r *GomokuRoom) removePlayer(userID string) {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}

func (r *GomokuRoom) stoneTaken(s Stone) bool {
	for _, p := range r.Players {
		if p.Stone == s {
			return true
		}
	}
	return false
}

// GomokuMoveResult is the outcome of one stone placement.
type GomokuMoveResult struct {
	Ended bool
	Draw  bool
}

// Gomoku coordinates all Gomoku rooms.
type Gomoku struct {
	rooms *store.Registry[*GomokuRoom]
	cfg   config.GomokuSettings
	src   random.Source
	log   *slog.Logger
}

// NewGomoku creates the Gomoku coordinator.
func NewGomoku(cfg config.GomokuSettings, src random.Source, log *slog.Logger) *Gomoku {
	return &Gomoku{
		rooms: store.NewRegistry[*GomokuRoom](src),
		cfg:   cfg,
		src:   src,
		log:   log.With("game", "gomoku"),
	}
}

// Create allocates a room with the caller seated as Black.
func (co *Gomoku) Create(id identity.Identity) (string, error) {
	room, err := co.rooms.Create(func(code string) *GomokuRoom {
		r := &GomokuRoom{
			Base:          newBase(code),
			BoardSize:     co.cfg.BoardSize,
			Board:         make([]Stone, co.cfg.BoardSize*co.cfg.BoardSize),
			LastMoveIndex: -1,
		}
		r.HostUserID = id.UserID
		r.Players = append(r.Players, &GomokuPlayer{
			PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
			Stone:      StoneBlack,
		})
		return r
	})
	if err != nil {
		return "", ErrRoomCodeCollision
	}

	metrics.RoomsActive.WithLabelValues("gomoku").Inc()
	co.log.Info("room created", "room", room.Code, "host", id.UserID)
	return room.Code, nil
}

// Join seats the caller, idempotently. The second player takes
// whichever stone is free, deterministically.
func (co *Gomoku) Join(id identity.Identity, code string) (*GomokuSnapshot, error) {
	r, ok := co.rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPlayer(id.UserID) != nil {
		return r.snapshot(), nil
	}
	if r.Status != StatusLobby {
		return nil, ErrRoomNotJoinable
	}
	if len(r.Players) >= co.cfg.Capacity {
		return nil, ErrRoomFull
	}

	stone := StoneBlack
	if r.stoneTaken(StoneBlack) {
		stone = StoneWhite
	}
	r.Players = append(r.Players, &GomokuPlayer{
		PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
		Stone:      stone,
	})

	snap := r.snapshot()
	r.broadcast(snap)
	co.log.Info("player joined", "room", r.Code, "user", id.UserID, "stone", stone)
	return snap, nil
}

// Leave unseats the caller. A departure mid-game forfeits: the
// remaining player wins.
func (co *Gomoku) Leave(id identity.Identity, code string) error {
	r, ok := co.rooms.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPlayer(id.UserID) == nil {
		return nil
	}

	r.removePlayer(id.UserID)
	delete(r.connections, id.UserID)
	co.closeSinksOf(r, id.UserID)

	if r.HostUserID == id.UserID {
		r.HostUserID = nextHost(r.playerIDs(), identity.BotUserID)
	}

	if r.Status == StatusPlaying {
		r.dropFromTurnOrder(id.UserID)
		if len(r.Players) < 2 {
			r.Status = StatusEnded
			r.cancelTimer()
			if len(r.Players) == 1 {
				w := r.Players[0]
				r.WinnerUserID = w.UserID
				r.WinnerUsername = w.Username
				r.WinnerStone = w.Stone
				co.log.Info("game forfeited", "room", r.Code, "winner", w.UserID)
			}
		}
	}

	if len(r.Players) == 0 {
		co.collect(r)
		return nil
	}

	r.broadcast(r.snapshot())
	co.log.Info("player left", "room", r.Code, "user", id.UserID)
	return nil
}

// Start clears the board and begins play. Host only; requires both
// seats filled. The insertion-order first player takes Black.
func (co *Gomoku) Start(id identity.Identity, code string) error {
	r, ok := co.rooms.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPlayer(id.UserID) == nil {
		return ErrNotInRoom
	}
	if id.UserID != r.HostUserID {
		return ErrHostOnly
	}
	if r.Status != StatusLobby {
		return ErrRoomNotJoinable
	}
	if len(r.Players) != 2 {
		return ErrNeedTwoPlayers
	}

	r.Board = make([]Stone, r.BoardSize*r.BoardSize)
	r.WinnerUserID = ""
	r.WinnerUsername = ""
	r.WinnerStone = ""
	r.Draw = false
	r.LastMoveIndex = -1
	r.LastMoveByUserID = ""

	r.Players[0].Stone = StoneBlack
	r.Players[1].Stone = StoneWhite
	r.Status = StatusPlaying
	r.startTurnOrder(r.playerIDs())

	r.broadcast(r.snapshot())
	co.log.Info("game started", "room", r.Code)
	return nil
}

// Move places the caller's stone at the given flat board index.
func (co *Gomoku) Move(id identity.Identity, code string, index int) (*GomokuMoveResult, error) {
	r, ok := co.rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(id.UserID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	if r.Status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	if r.turnUser() != id.UserID {
		return nil, ErrNotYourTurn
	}
	if p.Stone == "" {
		return nil, ErrPlayerNotReady
	}
	if index < 0 || index >= len(r.Board) {
		return nil, ErrInvalidIndex
	}
	if r.Board[index] != "" {
		return nil, ErrOccupied
	}

	r.Board[index] = p.Stone
	r.LastMoveIndex = index
	r.LastMoveByUserID = id.UserID

	result := &GomokuMoveResult{}
	switch {
	case r.winningMove(index, p.Stone):
		r.Status = StatusEnded
		r.WinnerUserID = p.UserID
		r.WinnerUsername = p.Username
		r.WinnerStone = p.Stone
		r.cancelTimer()
		result.Ended = true
		co.log.Info("game ended", "room", r.Code, "winner", p.UserID, "stone", p.Stone)
	case r.boardFull():
		r.Status = StatusEnded
		r.Draw = true
		r.cancelTimer()
		result.Ended = true
		result.Draw = true
		co.log.Info("game drawn", "room", r.Code)
	default:
		r.advanceTurn()
	}

	r.broadcast(r.snapshot())
	return result, nil
}

// winningMove walks the four axes through the placed cell, counting
// contiguous same-color stones in both directions.
func (r *GomokuRoom) winningMove(index int, stone Stone) bool {
	n := r.BoardSize
	row, col := index/n, index%n

	axes := [4][2]int{
		{0, 1},  // east
		{1, 0},  // south
		{1, 1},  // southeast
		{1, -1}, // southwest
	}
	for _, axis := range axes {
		count := 1
		for _, sign := range []int{1, -1} {
			dr, dc := axis[0]*sign, axis[1]*sign
			cr, cc := row+dr, col+dc
			for cr >= 0 && cr < n && cc >= 0 && cc < n && r.Board[cr*n+cc] == stone {
				count++
				cr += dr
				cc += dc
			}
		}
		if count >= 5 {
			return true
		}
	}
	return false
}

func (r *GomokuRoom) boardFull() bool {
	for _, c := range r.Board {
		if c == "" {
			return false
		}
	}
	return true
}

// Subscribe attaches an event stream for a room member.
func (co *Gomoku) Subscribe(id identity.Identity, code string, sink Sink) (func(), error) {
	r, ok := co.rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(id.UserID)
	if p == nil {
		return nil, ErrNotInRoom
	}

	sub := r.attachSubscriber(id.UserID, sink)
	p.Online = true
	metrics.SubscribersActive.WithLabelValues("gomoku").Inc()

	snap := r.snapshot()
	r.sendTo(sink, snap)
	r.broadcast(snap)

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		remaining := r.detachSubscriber(sub)
		metrics.SubscribersActive.WithLabelValues("gomoku").Dec()
		if remaining == 0 {
			if p := r.findPlayer(id.UserID); p != nil {
				p.Online = false
				r.broadcast(r.snapshot())
			}
		}
	}
	return cancel, nil
}

// Snapshot returns the room's public snapshot for a member.
func (co *Gomoku) Snapshot(id identity.Identity, code string) (*GomokuSnapshot, error) {
	r, ok := co.rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPlayer(id.UserID) == nil {
		return nil, ErrNotInRoom
	}
	return r.snapshot(), nil
}

// SweepStale collects rooms past maxAge with nobody connected.
func (co *Gomoku) SweepStale(maxAge time.Duration) {
	for _, r := range co.rooms.Snapshot() {
		r.mu.Lock()
		if len(r.subscribers) == 0 && time.Since(r.CreatedAt) > maxAge {
			co.collect(r)
		}
		r.mu.Unlock()
	}
}

func (co *Gomoku) collect(r *GomokuRoom) {
	r.cancelTimer()
	r.closeSubscribers()
	co.rooms.Delete(r.Code)
	metrics.RoomsActive.WithLabelValues("gomoku").Dec()
	co.log.Info("room collected", "room", r.Code)
}

func (co *Gomoku) closeSinksOf(r *GomokuRoom, userID string) {
	for sub := range r.subscribers {
		if sub.userID == userID {
			sub.sink.Close()
		}
	}
}

// GomokuSnapshot is the public state pushed to every subscriber. Board
// cells serialize as "" (empty), "B" or "W".
type GomokuSnapshot struct {
	Game             string          `json:"game"`
	Code             string          `json:"code"`
	Status           Status          `json:"status"`
	HostUserID       *string         `json:"hostUserId"`
	CreatedAt        time.Time       `json:"createdAt"`
	Players          []*GomokuPlayer `json:"players"`
	TurnUserID       *string         `json:"turnUserId"`
	BoardSize        int             `json:"boardSize"`
	Board            []Stone         `json:"board"`
	WinnerUserID     *string         `json:"winnerUserId"`
	WinnerUsername   *string         `json:"winnerUsername"`
	WinnerStone      *string         `json:"winnerStone"`
	Draw             bool            `json:"draw"`
	LastMoveIndex    *int            `json:"lastMoveIndex"`
	LastMoveByUserID *string         `json:"lastMoveByUserId"`
}

// snapshot builds the public view. Lock held by caller.
func (r *GomokuRoom) snapshot() *GomokuSnapshot {
	players := make([]*GomokuPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		cp := *p
		players = append(players, &cp)
	}

	var lastMove *int
	if r.LastMoveIndex >= 0 {
		idx := r.LastMoveIndex
		lastMove = &idx
	}

	return &GomokuSnapshot{
		Game:             "gomoku",
		Code:             r.Code,
		Status:           r.Status,
		HostUserID:       nullableStr(r.HostUserID),
		CreatedAt:        r.CreatedAt,
		Players:          players,
		TurnUserID:       nullableStr(r.turnUser()),
		BoardSize:        r.BoardSize,
		Board:            append([]Stone(nil), r.Board...),
		WinnerUserID:     nullableStr(r.WinnerUserID),
		WinnerUsername:   nullableStr(r.WinnerUsername),
		WinnerStone:      nullableStr(string(r.WinnerStone)),
		Draw:             r.Draw,
		LastMoveIndex:    lastMove,
		LastMoveByUserID: nullableStr(r.LastMoveByUserID),
	}
}
