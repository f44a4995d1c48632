package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playroom/internal/config"
	"playroom/internal/game"
	"playroom/internal/random"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.Port = "0"
	cfg.Server.Host = "127.0.0.1"

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := random.New()

	h := New(
		game.NewBingo(cfg.Games.Bingo, src, log),
		game.NewCroc(cfg.Games.Croc, src, log),
		game.NewMemory(cfg.Games.Memory, src, log),
		game.NewGomoku(cfg.Games.Gomoku, src, log),
		cfg,
		log,
	)
	return h.SetupRouter(RouterOptions{})
}

type apiResponse struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
	Room  json.RawMessage `json:"room"`
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, user string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-Id", "u-"+user)
		req.Header.Set("X-User-Name", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec, _ := doJSON(t, router, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	router := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/create/bingo", map[string]any{"size": 5}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.OK)
	assert.Equal(t, "unauthorized", resp.Error)
}

func TestBingoFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/create/bingo", map[string]any{"size": 5}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, resp.OK)
	code := resp.Code
	require.Len(t, code, 6)

	rec, resp = doJSON(t, router, http.MethodPost, "/bingo/"+code+"/join", nil, "bob")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, resp.Room)

	// Non-host start is forbidden.
	rec, resp = doJSON(t, router, http.MethodPost, "/bingo/"+code+"/start", map[string]any{"drawTimeoutSeconds": 5}, "bob")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "host_only", resp.Error)

	rec, _ = doJSON(t, router, http.MethodPost, "/bingo/"+code+"/start", map[string]any{"drawTimeoutSeconds": 5}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Out-of-turn draw.
	rec, resp = doJSON(t, router, http.MethodPost, "/bingo/"+code+"/draw", map[string]any{"number": 1}, "bob")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_your_turn", resp.Error)

	rec, resp = doJSON(t, router, http.MethodPost, "/bingo/"+code+"/draw", map[string]any{"number": 1}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, resp.OK)

	rec, resp = doJSON(t, router, http.MethodPost, "/bingo/"+code+"/draw", map[string]any{"number": 1}, "bob")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "number_already_called", resp.Error)

	// Snapshot fetch for a member.
	rec, resp = doJSON(t, router, http.MethodGet, "/bingo/"+code, nil, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, resp.Room)

	rec, resp = doJSON(t, router, http.MethodGet, "/bingo/"+code, nil, "carol")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_in_room", resp.Error)
}

func TestCrocFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/create/croc", map[string]any{"toothCountPerJaw": 10}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := resp.Code

	rec, _ = doJSON(t, router, http.MethodPost, "/croc/"+code+"/join", nil, "bob")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/croc/"+code+"/start", nil, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = doJSON(t, router, http.MethodPost, "/croc/"+code+"/pick", map[string]any{"tooth": 3}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pick struct {
		OK   bool `json:"ok"`
		Trap bool `json:"trap"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pick))
	assert.True(t, pick.OK)
}

func TestGomokuFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/create/gomoku", nil, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := resp.Code

	rec, resp = doJSON(t, router, http.MethodPost, "/gomoku/"+code+"/start", nil, "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "need_two_players", resp.Error)

	rec, _ = doJSON(t, router, http.MethodPost, "/gomoku/"+code+"/join", nil, "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doJSON(t, router, http.MethodPost, "/gomoku/"+code+"/start", nil, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = doJSON(t, router, http.MethodPost, "/gomoku/"+code+"/move", map[string]any{"index": 112}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp = doJSON(t, router, http.MethodPost, "/gomoku/"+code+"/move", map[string]any{"index": 112}, "bob")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "occupied", resp.Error)
}

func TestMemoryPickOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/create/memory", map[string]any{"cardCount": 20}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := resp.Code

	rec, _ = doJSON(t, router, http.MethodPost, "/memory/"+code+"/start", nil, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = doJSON(t, router, http.MethodPost, "/memory/"+code+"/pick", map[string]any{"index": 0}, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp = doJSON(t, router, http.MethodPost, "/memory/"+code+"/pick", map[string]any{"index": 0}, "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_revealed", resp.Error)
}

func TestRoomNotFoundMapsTo404(t *testing.T) {
	router := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/bingo/ZZZZZZ/join", nil, "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "room_not_found", resp.Error)
}

func TestInvalidJSONRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/create/bingo", bytes.NewBufferString("{not json"))
	req.Header.Set("X-User-Id", "u-alice")
	req.Header.Set("X-User-Name", "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"invalid_json"`)
}

func TestUnknownGameRejected(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/create/chess", nil, "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/croc/ABCDEF/move", map[string]any{"index": 0}, "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code, "move is not a croc operation")
}

func TestCreateValidationOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/create/bingo", map[string]any{"size": 3}, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_size", resp.Error)

	rec, resp = doJSON(t, router, http.MethodPost, "/create/memory", map[string]any{"cardCount": 7}, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_card_count", resp.Error)
}
