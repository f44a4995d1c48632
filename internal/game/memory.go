package game

import (
	"log/slog"
	"strconv"
	"time"

	"playroom/internal/config"
	"playroom/internal/identity"
	"playroom/internal/metrics"
	"playroom/internal/random"
	"playroom/internal/store"
)

// MemoryCard is one card of the deck. CountryKey, Flag and NameKo are
// only exposed to clients while the card is revealed or matched.
type MemoryCard struct {
	UID        string
	CountryKey string
	Flag       string
	NameKo     string
	Matched    bool
}

// MemoryPlayer is one participant with a pair score.
type MemoryPlayer struct {
	PlayerInfo
	Score int `json:"score"`
}

// MemoryWinner records a player tied for the top score at the end.
type MemoryWinner struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// MemoryRoom is a Flag Memory matching session.
type MemoryRoom struct {
	Base

	CardCount    int
	Cards        []*MemoryCard
	MatchedCount int

	Revealed  []int
	Resolving bool

	Winners []MemoryWinner
	Players []*MemoryPlayer
}

func (r *MemoryRoom) findPlayer(userID string) *MemoryPlayer {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *MemoryRoom) playerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (r *MemoryRoom) removePlayer(userID string) {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}

func (r *MemoryRoom) revealedContains(index int) bool {
	for _, i := range r.Revealed {
		if i == index {
			return true
		}
	}
	return false
}

// MemoryOptions are the room creation parameters.
type MemoryOptions struct {
	CardCount int `json:"cardCount"`
}

// MemoryStartOptions are the start parameters. A zero CardCount keeps
// the value chosen at creation.
type MemoryStartOptions struct {
	CardCount int `json:"cardCount"`
}

// MemoryPickResult is the outcome of one card pick.
type MemoryPickResult struct {
	// Matched is nil for the first card of a pair.
	Matched *bool
	Ended   bool
}

// Memory coordinates all Flag Memory rooms.
type Memory struct {
	rooms *store.Registry[*MemoryRoom]
	cfg   config.MemorySettings
	src   random.Source
	log   *slog.Logger
}

// NewMemory creates the Memory coordinator.
func NewMemory(cfg config.MemorySettings, src random.Source, log *slog.Logger) *Memory {
	return &Memory{
		rooms: store.NewRegistry[*MemoryRoom](src),
		cfg:   cfg,
		src:   src,
		log:   log.With("game", "memory"),
	}
}

// buildDeck draws cardCount/2 distinct countries, duplicates each and
// shuffles. UIDs are positional so they leak nothing about pairs.
func (co *Memory) buildDeck(cardCount int) []*MemoryCard {
	picks := random.Perm(co.src, len(Countries))[:cardCount/2]

	cards := make([]*MemoryCard, 0, cardCount)
	for _, i := range picks {
		c := Countries[i]
		for k := 0; k < 2; k++ {
			cards = append(cards, &MemoryCard{
				CountryKey: c.Key,
				Flag:       c.Flag,
				NameKo:     c.NameKo,
			})
		}
	}
	random.Shuffle(co.src, len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	for i, c := range cards {
		c.UID = "c" + strconv.Itoa(i+1)
	}
	return cards
}

// Create allocates a room with the caller as host.
func (co *Memory) Create(id identity.Identity, opts MemoryOptions) (string, error) {
	if !containsInt(co.cfg.CardCountChoices, opts.CardCount) {
		return "", ErrInvalidCardCount
	}

	room, err := co.rooms.Create(func(code string) *MemoryRoom {
		r := &MemoryRoom{
			Base:      newBase(code),
			CardCount: opts.CardCount,
		}
		r.HostUserID = id.UserID
		r.Players = append(r.Players, &MemoryPlayer{
			PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
		})
		return r
	})
	if err != nil {
		return "", ErrRoomCodeCollision
	}

	metrics.RoomsActive.WithLabelValues("memory").Inc()
	co.log.Info("room created", "room", room.Code, "cardCount", opts.CardCount, "host", id.UserID)
	return room.Code, nil
}

// Join adds the caller to the room, idempotently.
func (co *Memory) Join(id identity.Identity, code string) (*MemorySnapshot, error) {
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
	if len(r.Players) >= co.cfg.MaxPlayers {
		return nil, ErrRoomFull
	}

	r.Players = append(r.Players, &MemoryPlayer{
		PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
	})

	snap := r.snapshot()
	r.broadcast(snap)
	co.log.Info("player joined", "room", r.Code, "user", id.UserID)
	return snap, nil
}

// Leave removes the caller. An in-flight mismatch resolution is settled
// immediately before the turn order is reconciled.
func (co *Memory) Leave(id identity.Identity, code string) error {
	r, ok := co.rooms.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPlayer(id.UserID) == nil {
		return nil
	}

	if r.Status == StatusPlaying && r.Resolving {
		r.cancelTimer()
		r.Revealed = nil
		r.Resolving = false
		r.advanceTurn()
	}

	r.removePlayer(id.UserID)
	delete(r.connections, id.UserID)
	co.closeSinksOf(r, id.UserID)

	if r.HostUserID == id.UserID {
		r.HostUserID = nextHost(r.playerIDs(), identity.BotUserID)
	}

	if r.Status == StatusPlaying {
		if r.dropFromTurnOrder(id.UserID) {
			r.Status = StatusEnded
			r.cancelTimer()
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

// Start rebuilds the deck and begins play. Host only.
func (co *Memory) Start(id identity.Identity, code string, opts MemoryStartOptions) error {
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
	if opts.CardCount != 0 {
		if !containsInt(co.cfg.CardCountChoices, opts.CardCount) {
			return ErrInvalidCardCount
		}
		r.CardCount = opts.CardCount
	}

	r.Cards = co.buildDeck(r.CardCount)
	r.MatchedCount = 0
	r.Revealed = nil
	r.Resolving = false
	r.Winners = nil
	for _, p := range r.Players {
		p.Score = 0
	}
	r.Status = StatusPlaying
	r.startTurnOrder(r.playerIDs())

	r.broadcast(r.snapshot())
	co.log.Info("game started", "room", r.Code, "players", len(r.Players), "cards", r.CardCount)
	return nil
}

// Pick reveals one card for the player holding the turn.
func (co *Memory) Pick(id identity.Identity, code string, index int) (*MemoryPickResult, error) {
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
	if r.Resolving {
		return nil, ErrResolving
	}
	if r.turnUser() != id.UserID {
		return nil, ErrNotYourTurn
	}
	if index < 0 || index >= len(r.Cards) {
		return nil, ErrInvalidIndex
	}
	if r.Cards[index].Matched {
		return nil, ErrAlreadyMatched
	}
	if r.revealedContains(index) {
		return nil, ErrAlreadyRevealed
	}

	r.Revealed = append(r.Revealed, index)

	if len(r.Revealed) == 1 {
		r.broadcast(r.snapshot())
		return &MemoryPickResult{}, nil
	}

	first, second := r.Cards[r.Revealed[0]], r.Cards[r.Revealed[1]]
	if first.CountryKey == second.CountryKey {
		first.Matched = true
		second.Matched = true
		r.MatchedCount++
		r.Revealed = nil
		p.Score++

		matched := true
		result := &MemoryPickResult{Matched: &matched}
		if r.MatchedCount == r.CardCount/2 {
			r.Status = StatusEnded
			r.Winners = topScorers(r.Players)
			r.cancelTimer()
			result.Ended = true
			co.log.Info("game ended", "room", r.Code, "winners", len(r.Winners))
		}

		r.broadcast(r.snapshot())
		return result, nil
	}

	// Mismatch: keep both cards face-up briefly, then hide them and
	// pass the turn.
	r.Resolving = true
	r.schedule(co.cfg.ResolveDelay, func(seq uint64) {
		co.resolveMismatch(r, seq)
	})

	matched := false
	r.broadcast(r.snapshot())
	return &MemoryPickResult{Matched: &matched}, nil
}

// resolveMismatch re-enters the room after the reveal delay.
func (co *Memory) resolveMismatch(r *MemoryRoom, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.timerValid(seq) || r.Status != StatusPlaying || !r.Resolving {
		return
	}

	r.Revealed = nil
	r.Resolving = false
	r.advanceTurn()
	r.broadcast(r.snapshot())
}

// topScorers returns the players tied for the maximum score.
func topScorers(players []*MemoryPlayer) []MemoryWinner {
	max := -1
	for _, p := range players {
		if p.Score > max {
			max = p.Score
		}
	}

	winners := []MemoryWinner{}
	for _, p := range players {
		if p.Score == max {
			winners = append(winners, MemoryWinner{UserID: p.UserID, Username: p.Username, Score: p.Score})
		}
	}
	return winners
}

// Subscribe attaches an event stream for a room member.
func (co *Memory) Subscribe(id identity.Identity, code string, sink Sink) (func(), error) {
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
	metrics.SubscribersActive.WithLabelValues("memory").Inc()

	snap := r.snapshot()
	r.sendTo(sink, snap)
	r.broadcast(snap)

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		remaining := r.detachSubscriber(sub)
		metrics.SubscribersActive.WithLabelValues("memory").Dec()
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
func (co *Memory) Snapshot(id identity.Identity, code string) (*MemorySnapshot, error) {
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
func (co *Memory) SweepStale(maxAge time.Duration) {
	for _, r := range co.rooms.Snapshot() {
		r.mu.Lock()
		if len(r.subscribers) == 0 && time.Since(r.CreatedAt) > maxAge {
			co.collect(r)
		}
		r.mu.Unlock()
	}
}

func (co *Memory) collect(r *MemoryRoom) {
	r.cancelTimer()
	r.closeSubscribers()
	co.rooms.Delete(r.Code)
	metrics.RoomsActive.WithLabelValues("memory").Dec()
	co.log.Info("room collected", "room", r.Code)
}

func (co *Memory) closeSinksOf(r *MemoryRoom, userID string) {
	for sub := range r.subscribers {
		if sub.userID == userID {
			sub.sink.Close()
		}
	}
}

// MemoryCardView is a card as clients see it: identity and match state
// always, face only while visible.
type MemoryCardView struct {
	UID        string  `json:"uid"`
	Matched    bool    `json:"matched"`
	Visible    bool    `json:"visible"`
	CountryKey *string `json:"countryKey"`
	Flag       *string `json:"flag"`
	NameKo     *string `json:"nameKo"`
}

// MemorySnapshot is the public state pushed to every subscriber.
type MemorySnapshot struct {
	Game            string            `json:"game"`
	Code            string            `json:"code"`
	Status          Status            `json:"status"`
	HostUserID      *string           `json:"hostUserId"`
	CreatedAt       time.Time         `json:"createdAt"`
	Players         []*MemoryPlayer   `json:"players"`
	TurnUserID      *string           `json:"turnUserId"`
	CardCount       int               `json:"cardCount"`
	Cards           []*MemoryCardView `json:"cards"`
	MatchedCount    int               `json:"matchedCount"`
	RevealedIndices []int             `json:"revealedIndices"`
	Resolving       bool              `json:"resolving"`
	Winners         []MemoryWinner    `json:"winners"`
}

// snapshot builds the public view: a card's face is visible iff it is
// currently revealed or already matched. Lock held by caller.
func (r *MemoryRoom) snapshot() *MemorySnapshot {
	cards := make([]*MemoryCardView, 0, len(r.Cards))
	for i, c := range r.Cards {
		view := &MemoryCardView{UID: c.UID, Matched: c.Matched}
		if c.Matched || r.revealedContains(i) {
			view.Visible = true
			view.CountryKey = nullableStr(c.CountryKey)
			view.Flag = nullableStr(c.Flag)
			view.NameKo = nullableStr(c.NameKo)
		}
		cards = append(cards, view)
	}

	players := make([]*MemoryPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		cp := *p
		players = append(players, &cp)
	}

	revealed := r.Revealed
	if revealed == nil {
		revealed = []int{}
	}
	winners := r.Winners
	if winners == nil {
		winners = []MemoryWinner{}
	}

	return &MemorySnapshot{
		Game:            "memory",
		Code:            r.Code,
		Status:          r.Status,
		HostUserID:      nullableStr(r.HostUserID),
		CreatedAt:       r.CreatedAt,
		Players:         players,
		TurnUserID:      nullableStr(r.turnUser()),
		CardCount:       r.CardCount,
		Cards:           cards,
		MatchedCount:    r.MatchedCount,
		RevealedIndices: append([]int(nil), revealed...),
		Resolving:       r.Resolving,
		Winners:         winners,
	}
}
