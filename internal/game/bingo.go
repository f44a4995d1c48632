package game

import (
	"log/slog"
	"sort"
	"time"

	"playroom/internal/config"
	"playroom/internal/identity"
	"playroom/internal/metrics"
	"playroom/internal/random"
	"playroom/internal/store"
)

// Draw reasons recorded on the room after each call.
const (
	DrawReasonManual  = "manual_pick"
	DrawReasonBot     = "bot_pick"
	DrawReasonTimeout = "timeout"
)

// BingoPlayer is one participant with a generated board.
type BingoPlayer struct {
	PlayerInfo
	Board [][]int `json:"board"`
	IsBot bool    `json:"isBot"`
}

// BingoWinner records a player who reached the target line count.
type BingoWinner struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Lines    int    `json:"lines"`
}

// BingoRoom is a number-call Bingo session.
type BingoRoom struct {
	Base

	Size               int
	TargetLines        int
	BotEnabled         bool
	DrawTimeoutSeconds int

	Called     map[int]bool
	LastNumber int

	LastDrawByUserID   string
	LastDrawByUsername string
	LastDrawReason     string

	// TurnEndsAt stays nil for human turns: drawTimeoutSeconds is a
	// client hint, the server never auto-draws for humans.
	TurnEndsAt *time.Time

	Winners []BingoWinner
	Players []*BingoPlayer
}

func (r *BingoRoom) findPlayer(userID string) *BingoPlayer {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *BingoRoom) humanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

func (r *BingoRoom) playerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (r *BingoRoom) removePlayer(userID string) {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}

// BingoOptions are the room creation parameters.
type BingoOptions struct {
	Size       int  `json:"size"`
	VsComputer bool `json:"vsComputer"`
}

// BingoStartOptions are the start parameters.
type BingoStartOptions struct {
	DrawTimeoutSeconds int `json:"drawTimeoutSeconds"`
}

// Bingo coordinates all Bingo rooms: registry, presence, subscriptions,
// the turn scheduler and the timed bot.
type Bingo struct {
	rooms *store.Registry[*BingoRoom]
	cfg   config.BingoSettings
	src   random.Source
	log   *slog.Logger
}

// NewBingo creates the Bingo coordinator.
func NewBingo(cfg config.BingoSettings, src random.Source, log *slog.Logger) *Bingo {
	return &Bingo{
		rooms: store.NewRegistry[*BingoRoom](src),
		cfg:   cfg,
		src:   src,
		log:   log.With("game", "bingo"),
	}
}

// newBoard deals size*size distinct numbers into a row-major matrix.
func (co *Bingo) newBoard(size int) [][]int {
	perm := random.Perm(co.src, size*size)
	board := make([][]int, size)
	for row := 0; row < size; row++ {
		board[row] = make([]int, size)
		for col := 0; col < size; col++ {
			board[row][col] = perm[row*size+col] + 1
		}
	}
	return board
}

// countLines counts complete rows, columns and the two main diagonals
// whose every cell has been called.
func countLines(board [][]int, called map[int]bool) int {
	size := len(board)
	lines := 0

	for row := 0; row < size; row++ {
		full := true
		for col := 0; col < size; col++ {
			if !called[board[row][col]] {
				full = false
				break
			}
		}
		if full {
			lines++
		}
	}

	for col := 0; col < size; col++ {
		full := true
		for row := 0; row < size; row++ {
			if !called[board[row][col]] {
				full = false
				break
			}
		}
		if full {
			lines++
		}
	}

	diag := true
	for i := 0; i < size; i++ {
		if !called[board[i][i]] {
			diag = false
			break
		}
	}
	if diag {
		lines++
	}

	anti := true
	for i := 0; i < size; i++ {
		if !called[board[i][size-1-i]] {
			anti = false
			break
		}
	}
	if anti {
		lines++
	}

	return lines
}

// Create allocates a room with the caller as host (and the bot, when
// requested) and returns its code.
func (co *Bingo) Create(id identity.Identity, opts BingoOptions) (string, error) {
	if opts.Size < co.cfg.MinSize || opts.Size > co.cfg.MaxSize {
		return "", ErrInvalidSize
	}

	room, err := co.rooms.Create(func(code string) *BingoRoom {
		r := &BingoRoom{
			Base:        newBase(code),
			Size:        opts.Size,
			TargetLines: co.cfg.TargetLines,
			BotEnabled:  opts.VsComputer,
			Called:      make(map[int]bool),
		}
		r.HostUserID = id.UserID
		r.Players = append(r.Players, &BingoPlayer{
			PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
			Board:      co.newBoard(opts.Size),
		})
		co.reconcileBot(r)
		return r
	})
	if err != nil {
		return "", ErrRoomCodeCollision
	}

	metrics.RoomsActive.WithLabelValues("bingo").Inc()
	co.log.Info("room created", "room", room.Code, "size", opts.Size, "vsComputer", opts.VsComputer, "host", id.UserID)
	return room.Code, nil
}

// reconcileBot enforces the bot presence policy while in the lobby: the
// bot occupies a slot while at most one human is present, and yields it
// when a second human joins. During play the roster is frozen.
func (co *Bingo) reconcileBot(r *BingoRoom) {
	if r.Status != StatusLobby || !r.BotEnabled {
		return
	}

	bot := r.findPlayer(identity.BotUserID)
	humans := r.humanCount()

	if humans <= 1 && bot == nil {
		b := identity.Bot()
		r.Players = append(r.Players, &BingoPlayer{
			PlayerInfo: PlayerInfo{UserID: b.UserID, Username: b.Username, JoinedAt: time.Now().UTC(), Online: true},
			Board:      co.newBoard(r.Size),
			IsBot:      true,
		})
	}
	if humans >= 2 && bot != nil {
		r.removePlayer(identity.BotUserID)
	}
}

// Join adds the caller to the room, idempotently. It returns the public
// snapshot and the caller's own board.
func (co *Bingo) Join(id identity.Identity, code string) (*BingoSnapshot, [][]int, error) {
	r, ok := co.rooms.Get(code)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.findPlayer(id.UserID); p != nil {
		return r.snapshot(), p.Board, nil
	}
	if r.Status != StatusLobby {
		return nil, nil, ErrRoomNotJoinable
	}
	if r.humanCount() >= co.cfg.MaxHumans {
		return nil, nil, ErrRoomFull
	}

	p := &BingoPlayer{
		PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
		Board:      co.newBoard(r.Size),
	}
	r.Players = append(r.Players, p)
	co.reconcileBot(r)

	snap := r.snapshot()
	r.broadcast(snap)
	co.log.Info("player joined", "room", r.Code, "user", id.UserID)
	return snap, p.Board, nil
}

// Leave removes the caller from the room, reconciling host, scheduler
// and bot state, and collects the room when no humans remain.
func (co *Bingo) Leave(id identity.Identity, code string) error {
	r, ok := co.rooms.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPlayer(id.UserID) == nil {
		return nil // leave is idempotent
	}

	r.removePlayer(id.UserID)
	delete(r.connections, id.UserID)
	co.closeSinksOf(r, id.UserID)

	if r.HostUserID == id.UserID {
		r.HostUserID = nextHost(r.playerIDs(), identity.BotUserID)
	}

	if r.Status == StatusPlaying {
		heldTurn := r.turnUser() == id.UserID
		if r.dropFromTurnOrder(id.UserID) {
			r.Status = StatusEnded
			r.cancelTimer()
		} else if heldTurn {
			r.cancelTimer()
			if r.turnUser() == identity.BotUserID {
				co.scheduleBotDraw(r)
			}
		}
	} else {
		co.reconcileBot(r)
	}

	if r.humanCount() == 0 {
		co.collect(r)
		return nil
	}

	r.broadcast(r.snapshot())
	co.log.Info("player left", "room", r.Code, "user", id.UserID)
	return nil
}

// Start begins play. Host only; the draw timeout hint must be one of
// the configured choices.
func (co *Bingo) Start(id identity.Identity, code string, opts BingoStartOptions) error {
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
	if len(r.Players) == 0 {
		return ErrNoPlayers
	}
	if !containsInt(co.cfg.DrawTimeoutChoices, opts.DrawTimeoutSeconds) {
		return ErrInvalidDrawTimeoutSeconds
	}

	r.DrawTimeoutSeconds = opts.DrawTimeoutSeconds
	r.Called = make(map[int]bool)
	r.LastNumber = 0
	r.LastDrawByUserID = ""
	r.LastDrawByUsername = ""
	r.LastDrawReason = ""
	r.Winners = nil
	r.TurnEndsAt = nil
	r.Status = StatusPlaying
	r.startTurnOrder(r.playerIDs())

	if r.turnUser() == identity.BotUserID {
		co.scheduleBotDraw(r)
	}

	r.broadcast(r.snapshot())
	co.log.Info("game started", "room", r.Code, "players", len(r.Players), "drawTimeout", opts.DrawTimeoutSeconds)
	return nil
}

// Draw applies the caller's number call.
func (co *Bingo) Draw(id identity.Identity, code string, number int) error {
	r, ok := co.rooms.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(id.UserID)
	if p == nil {
		return ErrNotInRoom
	}
	if r.Status != StatusPlaying {
		return ErrNotPlaying
	}
	if r.turnUser() != id.UserID {
		return ErrNotYourTurn
	}
	if err := co.applyDraw(r, p.PlayerInfo, DrawReasonManual, number); err != nil {
		return err
	}

	r.broadcast(r.snapshot())
	return nil
}

// applyDraw validates and applies one number call, evaluates winners
// across all players, and either ends the game or advances the turn
// (scheduling the bot when it takes over). Lock held by caller.
func (co *Bingo) applyDraw(r *BingoRoom, actor PlayerInfo, reason string, number int) error {
	if number < 1 || number > r.Size*r.Size {
		return ErrInvalidNumber
	}
	if r.Called[number] {
		return ErrNumberAlreadyCalled
	}

	r.Called[number] = true
	r.LastNumber = number
	r.LastDrawByUserID = actor.UserID
	r.LastDrawByUsername = actor.Username
	r.LastDrawReason = reason

	var winners []BingoWinner
	for _, p := range r.Players {
		if lines := countLines(p.Board, r.Called); lines >= r.TargetLines {
			winners = append(winners, BingoWinner{UserID: p.UserID, Username: p.Username, Lines: lines})
		}
	}
	if len(winners) > 0 {
		r.Status = StatusEnded
		r.Winners = winners
		r.cancelTimer()
		co.log.Info("game ended", "room", r.Code, "winners", len(winners))
		return nil
	}

	if len(r.Called) == r.Size*r.Size {
		// Deck exhausted with nobody at the threshold.
		r.Status = StatusEnded
		r.Winners = []BingoWinner{}
		r.cancelTimer()
		co.log.Info("game ended with no winner", "room", r.Code)
		return nil
	}

	r.advanceTurn()
	if r.turnUser() == identity.BotUserID {
		co.scheduleBotDraw(r)
	}
	return nil
}

// scheduleBotDraw arms the deferred bot move. Lock held by caller.
func (co *Bingo) scheduleBotDraw(r *BingoRoom) {
	r.schedule(co.cfg.BotMoveDelay, func(seq uint64) {
		co.botDraw(r, seq)
	})
}

// botDraw re-enters the room, re-checks that it is still this timer's
// turn to act, and plays a uniformly random remaining number.
func (co *Bingo) botDraw(r *BingoRoom, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.timerValid(seq) || r.Status != StatusPlaying || r.turnUser() != identity.BotUserID {
		return
	}

	var remaining []int
	for n := 1; n <= r.Size*r.Size; n++ {
		if !r.Called[n] {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) == 0 {
		return
	}

	number := remaining[co.src.Intn(len(remaining))]
	bot := identity.Bot()
	if err := co.applyDraw(r, PlayerInfo{UserID: bot.UserID, Username: bot.Username}, DrawReasonBot, number); err != nil {
		co.log.Warn("bot draw rejected", "room", r.Code, "number", number, "err", err)
		return
	}

	r.broadcast(r.snapshot())
	co.log.Debug("bot drew", "room", r.Code, "number", number)
}

// Subscribe attaches an event stream for a room member. The returned
// cancel function detaches it and reconciles presence.
func (co *Bingo) Subscribe(id identity.Identity, code string, sink Sink) (func(), error) {
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
	metrics.SubscribersActive.WithLabelValues("bingo").Inc()

	snap := r.snapshot()
	r.sendTo(sink, snap)
	r.broadcast(snap)

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		remaining := r.detachSubscriber(sub)
		metrics.SubscribersActive.WithLabelValues("bingo").Dec()
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
func (co *Bingo) Snapshot(id identity.Identity, code string) (*BingoSnapshot, error) {
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
func (co *Bingo) SweepStale(maxAge time.Duration) {
	for _, r := range co.rooms.Snapshot() {
		r.mu.Lock()
		if len(r.subscribers) == 0 && time.Since(r.CreatedAt) > maxAge {
			co.collect(r)
		}
		r.mu.Unlock()
	}
}

// collect destroys the room: timers cancelled, subscribers closed,
// registry entry removed. Lock held by caller.
func (co *Bingo) collect(r *BingoRoom) {
	r.cancelTimer()
	r.closeSubscribers()
	co.rooms.Delete(r.Code)
	metrics.RoomsActive.WithLabelValues("bingo").Dec()
	co.log.Info("room collected", "room", r.Code)
}

func (co *Bingo) closeSinksOf(r *BingoRoom, userID string) {
	for sub := range r.subscribers {
		if sub.userID == userID {
			sub.sink.Close()
		}
	}
}

// BingoSnapshot is the public state pushed to every subscriber.
type BingoSnapshot struct {
	Game               string         `json:"game"`
	Code               string         `json:"code"`
	Status             Status         `json:"status"`
	HostUserID         *string        `json:"hostUserId"`
	CreatedAt          time.Time      `json:"createdAt"`
	Players            []*BingoPlayer `json:"players"`
	TurnUserID         *string        `json:"turnUserId"`
	Size               int            `json:"size"`
	TargetLines        int            `json:"targetLines"`
	BotEnabled         bool           `json:"botEnabled"`
	CalledNumbers      []int          `json:"calledNumbers"`
	LastNumber         *int           `json:"lastNumber"`
	DrawTimeoutSeconds int            `json:"drawTimeoutSeconds"`
	TurnEndsAt         *time.Time     `json:"turnEndsAt"`
	LastDrawByUserID   *string        `json:"lastDrawByUserId"`
	LastDrawByUsername *string        `json:"lastDrawByUsername"`
	LastDrawReason     *string        `json:"lastDrawReason"`
	Winners            []BingoWinner  `json:"winners"`
}

// snapshot builds the public view. Lock held by caller.
func (r *BingoRoom) snapshot() *BingoSnapshot {
	called := make([]int, 0, len(r.Called))
	for n := range r.Called {
		called = append(called, n)
	}
	sort.Ints(called)

	players := make([]*BingoPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		cp := *p
		players = append(players, &cp)
	}

	winners := r.Winners
	if winners == nil {
		winners = []BingoWinner{}
	}

	return &BingoSnapshot{
		Game:               "bingo",
		Code:               r.Code,
		Status:             r.Status,
		HostUserID:         nullableStr(r.HostUserID),
		CreatedAt:          r.CreatedAt,
		Players:            players,
		TurnUserID:         nullableStr(r.turnUser()),
		Size:               r.Size,
		TargetLines:        r.TargetLines,
		BotEnabled:         r.BotEnabled,
		CalledNumbers:      called,
		LastNumber:         nullableInt(r.LastNumber),
		DrawTimeoutSeconds: r.DrawTimeoutSeconds,
		TurnEndsAt:         r.TurnEndsAt,
		LastDrawByUserID:   nullableStr(r.LastDrawByUserID),
		LastDrawByUsername: nullableStr(r.LastDrawByUsername),
		LastDrawReason:     nullableStr(r.LastDrawReason),
		Winners:            winners,
	}
}

// nextHost returns the first candidate that is not the excluded bot id,
// or "" when only the bot remains.
func nextHost(candidates []string, botID string) string {
	for _, id := range candidates {
		if id != botID {
			return id
		}
	}
	return ""
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
