package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"playroom/internal/config"
	"playroom/internal/game"
	"playroom/internal/identity"
	"playroom/internal/metrics"
)

// Handler holds the per-game coordinators behind the HTTP surface.
type Handler struct {
	bingo  *game.Bingo
	croc   *game.Croc
	memory *game.Memory
	gomoku *game.Gomoku

	cfg *config.ServerConfig
	log *slog.Logger
}

// New creates a new handler.
func New(bingo *game.Bingo, croc *game.Croc, memory *game.Memory, gomoku *game.Gomoku, cfg *config.ServerConfig, log *slog.Logger) *Handler {
	return &Handler{
		bingo:  bingo,
		croc:   croc,
		memory: memory,
		gomoku: gomoku,
		cfg:    cfg,
		log:    log,
	}
}

// statusFor maps stable error identifiers onto HTTP status codes. The
// identifier itself is the contract; the status is a convention.
func statusFor(code string) int {
	switch code {
	case "room_not_found":
		return http.StatusNotFound
	case "unauthorized":
		return http.StatusUnauthorized
	case "host_only", "not_in_room", "not_your_turn":
		return http.StatusForbidden
	case "invalid_json", "invalid_size", "invalid_draw_timeout_seconds",
		"invalid_tooth", "invalid_tooth_count_per_jaw", "invalid_card_count",
		"invalid_index", "invalid_number", "username_length":
		return http.StatusBadRequest
	case "body_too_large":
		return http.StatusRequestEntityTooLarge
	case "not_playing", "room_not_joinable", "room_full", "need_two_players",
		"no_players", "number_already_called", "already_selected",
		"already_matched", "already_revealed", "resolving", "occupied",
		"player_not_ready":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func (h *Handler) writeOK(w http.ResponseWriter, gameName, op string, payload map[string]any) {
	metrics.Operations.WithLabelValues(gameName, op, "ok").Inc()
	body := map[string]any{"ok": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) writeError(w http.ResponseWriter, gameName, op string, err error) {
	code := game.Code(err)
	metrics.Operations.WithLabelValues(gameName, op, code).Inc()
	if code == "internal_error" {
		h.log.Error("operation failed", "game", gameName, "op", op, "err", err)
	}
	writeJSON(w, statusFor(code), map[string]any{"ok": false, "error": code})
}

// decodeBody reads the JSON request body into v. An empty body is
// accepted and leaves v zeroed, so operations without options need no
// payload.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return errInvalidJSON
	}
	return nil
}

var (
	errInvalidJSON  = game.NewError("invalid_json")
	errBodyTooLarge = game.NewError("body_too_large")
)

func caller(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

// CreateRoom handles POST /create/{game}.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	gameName := chi.URLParam(r, "game")

	var (
		code string
		err  error
	)
	switch gameName {
	case "bingo":
		var opts game.BingoOptions
		if err = decodeBody(r, &opts); err == nil {
			code, err = h.bingo.Create(id, opts)
		}
	case "croc":
		var opts game.CrocOptions
		if err = decodeBody(r, &opts); err == nil {
			code, err = h.croc.Create(id, opts)
		}
	case "memory":
		var opts game.MemoryOptions
		if err = decodeBody(r, &opts); err == nil {
			code, err = h.memory.Create(id, opts)
		}
	case "gomoku":
		code, err = h.gomoku.Create(id)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeError(w, gameName, "create", err)
		return
	}
	h.writeOK(w, gameName, "create", map[string]any{"code": code})
}

// JoinRoom handles POST /{game}/{code}/join.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	gameName := chi.URLParam(r, "game")
	code := chi.URLParam(r, "code")

	var (
		payload map[string]any
		err     error
	)
	switch gameName {
	case "bingo":
		var snap *game.BingoSnapshot
		var board [][]int
		snap, board, err = h.bingo.Join(id, code)
		if err == nil {
			payload = map[string]any{"room": snap, "board": board}
		}
	case "croc":
		var snap *game.CrocSnapshot
		snap, err = h.croc.Join(id, code)
		if err == nil {
			payload = map[string]any{"room": snap}
		}
	case "memory":
		var snap *game.MemorySnapshot
		snap, err = h.memory.Join(id, code)
		if err == nil {
			payload = map[string]any{"room": snap}
		}
	case "gomoku":
		var snap *game.GomokuSnapshot
		snap, err = h.gomoku.Join(id, code)
		if err == nil {
			payload = map[string]any{"room": snap}
		}
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeError(w, gameName, "join", err)
		return
	}
	h.writeOK(w, gameName, "join", payload)
}

// LeaveRoom handles POST /{game}/{code}/leave.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	gameName := chi.URLParam(r, "game")
	code := chi.URLParam(r, "code")

	var err error
	switch gameName {
	case "bingo":
		err = h.bingo.Leave(id, code)
	case "croc":
		err = h.croc.Leave(id, code)
	case "memory":
		err = h.memory.Leave(id, code)
	case "gomoku":
		err = h.gomoku.Leave(id, code)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeError(w, gameName, "leave", err)
		return
	}
	h.writeOK(w, gameName, "leave", nil)
}

// StartGame handles POST /{game}/{code}/start.
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	gameName := chi.URLParam(r, "game")
	code := chi.URLParam(r, "code")

	var err error
	switch gameName {
	case "bingo":
		var opts game.BingoStartOptions
		if err = decodeBody(r, &opts); err == nil {
			err = h.bingo.Start(id, code, opts)
		}
	case "croc":
		var opts game.CrocStartOptions
		if err = decodeBody(r, &opts); err == nil {
			err = h.croc.Start(id, code, opts)
		}
	case "memory":
		var opts game.MemoryStartOptions
		if err = decodeBody(r, &opts); err == nil {
			err = h.memory.Start(id, code, opts)
		}
	case "gomoku":
		err = h.gomoku.Start(id, code)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeError(w, gameName, "start", err)
		return
	}
	h.writeOK(w, gameName, "start", nil)
}

// GetRoom handles GET /{game}/{code}: a one-shot snapshot fetch for
// clients that want state without opening a stream.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	gameName := chi.URLParam(r, "game")
	code := chi.URLParam(r, "code")

	var (
		snap any
		err  error
	)
	switch gameName {
	case "bingo":
		snap, err = h.bingo.Snapshot(id, code)
	case "croc":
		snap, err = h.croc.Snapshot(id, code)
	case "memory":
		snap, err = h.memory.Snapshot(id, code)
	case "gomoku":
		snap, err = h.gomoku.Snapshot(id, code)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeError(w, gameName, "snapshot", err)
		return
	}
	h.writeOK(w, gameName, "snapshot", map[string]any{"room": snap})
}

// BingoDraw handles POST /bingo/{code}/draw.
func (h *Handler) BingoDraw(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "game") != "bingo" {
		http.NotFound(w, r)
		return
	}
	id := caller(r)
	code := chi.URLParam(r, "code")

	var body struct {
		Number int `json:"number"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, "bingo", "draw", err)
		return
	}

	if err := h.bingo.Draw(id, code, body.Number); err != nil {
		h.writeError(w, "bingo", "draw", err)
		return
	}
	h.writeOK(w, "bingo", "draw", map[string]any{"number": body.Number})
}

// Pick handles POST /{game}/{code}/pick for the two games with a pick
// move: Croc (teeth) and Memory (cards).
func (h *Handler) Pick(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "game") {
	case "croc":
		h.CrocPick(w, r)
	case "memory":
		h.MemoryPick(w, r)
	default:
		http.NotFound(w, r)
	}
}

// CrocPick handles POST /croc/{code}/pick.
func (h *Handler) CrocPick(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	code := chi.URLParam(r, "code")

	var body struct {
		Tooth int `json:"tooth"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, "croc", "pick", err)
		return
	}

	trap, err := h.croc.Pick(id, code, body.Tooth)
	if err != nil {
		h.writeError(w, "croc", "pick", err)
		return
	}
	h.writeOK(w, "croc", "pick", map[string]any{"trap": trap})
}

// MemoryPick handles POST /memory/{code}/pick.
func (h *Handler) MemoryPick(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	code := chi.URLParam(r, "code")

	var body struct {
		Index int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, "memory", "pick", err)
		return
	}

	result, err := h.memory.Pick(id, code, body.Index)
	if err != nil {
		h.writeError(w, "memory", "pick", err)
		return
	}

	payload := map[string]any{}
	if result.Matched != nil {
		payload["matched"] = *result.Matched
	}
	if result.Ended {
		payload["ended"] = true
	}
	h.writeOK(w, "memory", "pick", payload)
}

// GomokuMove handles POST /gomoku/{code}/move.
func (h *Handler) GomokuMove(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "game") != "gomoku" {
		http.NotFound(w, r)
		return
	}
	id := caller(r)
	code := chi.URLParam(r, "code")

	var body struct {
		Index int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, "gomoku", "move", err)
		return
	}

	result, err := h.gomoku.Move(id, code, body.Index)
	if err != nil {
		h.writeError(w, "gomoku", "move", err)
		return
	}

	payload := map[string]any{}
	if result.Ended {
		payload["ended"] = true
	}
	if result.Draw {
		payload["draw"] = true
	}
	h.writeOK(w, "gomoku", "move", payload)
}
