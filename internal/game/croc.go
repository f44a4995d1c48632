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

// CrocPlayer is one participant in a Crocodile-Tooth game.
type CrocPlayer struct {
	PlayerInfo
	Alive bool `json:"alive"`
}

// CrocRoom is a Crocodile-Tooth trap-picking session. The trap tooth
// is server-side state, revealed in snapshots only after the game ends.
type CrocRoom struct {
	Base

	ToothCountPerJaw int
	TrapTooth        int
	Selected         map[int]bool

	LastPickedTooth  int
	LastPickerUserID string

	LoserUserID    string
	LoserUsername  string
	WinnerUserID   string
	WinnerUsername string

	Players []*CrocPlayer
}

func (r *CrocRoom) findPlayer(userID string) *CrocPlayer {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *CrocRoom) playerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (r *CrocRoom) removePlayer(userID string) {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}

// CrocOptions are the room creation parameters.
type CrocOptions struct {
	ToothCountPerJaw int `json:"toothCountPerJaw"`
}

// Croc coordinates all Crocodile-Tooth rooms.
type Croc struct {
	rooms *store.Registry[*CrocRoom]
	cfg   config.CrocSettings
	src   random.Source
	log   *slog.Logger
}

// NewCroc creates the Croc coordinator.
func NewCroc(cfg config.CrocSettings, src random.Source, log *slog.Logger) *Croc {
	return &Croc{
		rooms: store.NewRegistry[*CrocRoom](src),
		cfg:   cfg,
		src:   src,
		log:   log.With("game", "croc"),
	}
}

func (co *Croc) validTeeth(n int) bool {
	return n >= co.cfg.MinTeethPerJaw && n <= co.cfg.MaxTeethPerJaw
}

// Create allocates a room with the caller as host.
func (co *Croc) Create(id identity.Identity, opts CrocOptions) (string, error) {
	if !co.validTeeth(opts.ToothCountPerJaw) {
		return "", ErrInvalidToothCountPerJaw
	}

	room, err := co.rooms.Create(func(code string) *CrocRoom {
		r := &CrocRoom{
			Base:             newBase(code),
			ToothCountPerJaw: opts.ToothCountPerJaw,
			Selected:         make(map[int]bool),
		}
		r.HostUserID = id.UserID
		r.Players = append(r.Players, &CrocPlayer{
			PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
			Alive:      true,
		})
		return r
	})
	if err != nil {
		return "", ErrRoomCodeCollision
	}

	metrics.RoomsActive.WithLabelValues("croc").Inc()
	co.log.Info("room created", "room", room.Code, "teethPerJaw", opts.ToothCountPerJaw, "host", id.UserID)
	return room.Code, nil
}

// Join adds the caller to the room, idempotently.
func (co *Croc) Join(id identity.Identity, code string) (*CrocSnapshot, error) {
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

	r.Players = append(r.Players, &CrocPlayer{
		PlayerInfo: PlayerInfo{UserID: id.UserID, Username: id.Username, JoinedAt: time.Now().UTC()},
		Alive:      true,
	})

	snap := r.snapshot()
	r.broadcast(snap)
	co.log.Info("player joined", "room", r.Code, "user", id.UserID)
	return snap, nil
}

// Leave removes the caller, reconciling host and scheduler state, and
// collects the room when it empties.
func (co *Croc) Leave(id identity.Identity, code string) error {
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
		if r.dropFromTurnOrder(id.UserID) {
			r.Status = StatusEnded
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

// CrocStartOptions are the start parameters. A zero ToothCountPerJaw
// keeps the value chosen at creation.
type CrocStartOptions struct {
	ToothCountPerJaw int `json:"toothCountPerJaw"`
}

// Start begins play: the trap tooth is drawn uniformly at random, all
// players marked alive and the turn order seeded.
func (co *Croc) Start(id identity.Identity, code string, opts CrocStartOptions) error {
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
	if len(r.Players) < 2 {
		return ErrNeedTwoPlayers
	}
	if opts.ToothCountPerJaw != 0 {
		if !co.validTeeth(opts.ToothCountPerJaw) {
			return ErrInvalidToothCountPerJaw
		}
		r.ToothCountPerJaw = opts.ToothCountPerJaw
	}

	r.TrapTooth = 1 + co.src.Intn(2*r.ToothCountPerJaw)
	r.Selected = make(map[int]bool)
	r.LastPickedTooth = 0
	r.LastPickerUserID = ""
	r.LoserUserID = ""
	r.LoserUsername = ""
	r.WinnerUserID = ""
	r.WinnerUsername = ""
	for _, p := range r.Players {
		p.Alive = true
	}
	r.Status = StatusPlaying
	r.startTurnOrder(r.playerIDs())

	r.broadcast(r.snapshot())
	co.log.Info("game started", "room", r.Code, "players", len(r.Players), "teeth", 2*r.ToothCountPerJaw)
	return nil
}

// Pick applies one tooth pick and reports whether it hit the trap.
func (co *Croc) Pick(id identity.Identity, code string, tooth int) (bool, error) {
	r, ok := co.rooms.Get(code)
	if !ok {
		return false, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(id.UserID)
	if p == nil {
		return false, ErrNotInRoom
	}
	if r.Status != StatusPlaying {
		return false, ErrNotPlaying
	}
	if r.turnUser() != id.UserID {
		return false, ErrNotYourTurn
	}
	if tooth < 1 || tooth > 2*r.ToothCountPerJaw {
		return false, ErrInvalidTooth
	}
	if r.Selected[tooth] {
		return false, ErrAlreadySelected
	}

	r.Selected[tooth] = true
	r.LastPickedTooth = tooth
	r.LastPickerUserID = id.UserID

	trap := tooth == r.TrapTooth
	if trap {
		r.Status = StatusEnded
		p.Alive = false
		r.LoserUserID = p.UserID
		r.LoserUsername = p.Username

		// Winner selection: first non-picker in turn order. With two
		// players this is the survivor; flagged for redesign beyond that.
		for _, uid := range r.TurnOrder {
			if uid != id.UserID {
				if w := r.findPlayer(uid); w != nil {
					r.WinnerUserID = w.UserID
					r.WinnerUsername = w.Username
				}
				break
			}
		}
		co.log.Info("trap sprung", "room", r.Code, "loser", p.UserID, "tooth", tooth)
	} else {
		r.advanceTurn()
	}

	r.broadcast(r.snapshot())
	return trap, nil
}

// Subscribe attaches an event stream for a room member.
func (co *Croc) Subscribe(id identity.Identity, code string, sink Sink) (func(), error) {
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
	metrics.SubscribersActive.WithLabelValues("croc").Inc()

	snap := r.snapshot()
	r.sendTo(sink, snap)
	r.broadcast(snap)

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		remaining := r.detachSubscriber(sub)
		metrics.SubscribersActive.WithLabelValues("croc").Dec()
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
func (co *Croc) Snapshot(id identity.Identity, code string) (*CrocSnapshot, error) {
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
func (co *Croc) SweepStale(maxAge time.Duration) {
	for _, r := range co.rooms.Snapshot() {
		r.mu.Lock()
		if len(r.subscribers) == 0 && time.Since(r.CreatedAt) > maxAge {
			co.collect(r)
		}
		r.mu.Unlock()
	}
}

func (co *Croc) collect(r *CrocRoom) {
	r.cancelTimer()
	r.closeSubscribers()
	co.rooms.Delete(r.Code)
	metrics.RoomsActive.WithLabelValues("croc").Dec()
	co.log.Info("room collected", "room", r.Code)
}

func (co *Croc) closeSinksOf(r *CrocRoom, userID string) {
	for sub := range r.subscribers {
		if sub.userID == userID {
			sub.sink.Close()
		}
	}
}

// CrocSnapshot is the public state pushed to every subscriber.
type CrocSnapshot struct {
	Game             string        `json:"game"`
	Code             string        `json:"code"`
	Status           Status        `json:"status"`
	HostUserID       *string       `json:"hostUserId"`
	CreatedAt        time.Time     `json:"createdAt"`
	Players          []*CrocPlayer `json:"players"`
	TurnUserID       *string       `json:"turnUserId"`
	ToothCountPerJaw int           `json:"toothCountPerJaw"`
	SelectedTeeth    []int         `json:"selectedTeeth"`
	LastPickedTooth  *int          `json:"lastPickedTooth"`
	LastPickerUserID *string       `json:"lastPickerUserId"`
	TrapTooth        *int          `json:"trapTooth"`
	LoserUserID      *string       `json:"loserUserId"`
	LoserUsername    *string       `json:"loserUsername"`
	WinnerUserID     *string       `json:"winnerUserId"`
	WinnerUsername   *string       `json:"winnerUsername"`
}

// snapshot builds the public view. The trap tooth is only exposed once
// the game has ended. Lock held by caller.
func (r *CrocRoom) snapshot() *CrocSnapshot {
	selected := make([]int, 0, len(r.Selected))
	for t := range r.Selected {
		selected = append(selected, t)
	}
	sort.Ints(selected)

	players := make([]*CrocPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		cp := *p
		players = append(players, &cp)
	}

	var trap *int
	if r.Status == StatusEnded && r.TrapTooth != 0 {
		trap = nullableInt(r.TrapTooth)
	}

	return &CrocSnapshot{
		Game:             "croc",
		Code:             r.Code,
		Status:           r.Status,
		HostUserID:       nullableStr(r.HostUserID),
		CreatedAt:        r.CreatedAt,
		Players:          players,
		TurnUserID:       nullableStr(r.turnUser()),
		ToothCountPerJaw: r.ToothCountPerJaw,
		SelectedTeeth:    selected,
		LastPickedTooth:  nullableInt(r.LastPickedTooth),
		LastPickerUserID: nullableStr(r.LastPickerUserID),
		TrapTooth:        trap,
		LoserUserID:      nullableStr(r.LoserUserID),
		LoserUsername:    nullableStr(r.LoserUsername),
		WinnerUserID:     nullableStr(r.WinnerUserID),
		WinnerUsername:   nullableStr(r.WinnerUsername),
	}
}
