package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"playroom/internal/game"
)

// sseSink writes SSE frames to one client. Broadcasts arrive from room
// goroutines while heartbeats come from the stream handler, so every
// write goes through the mutex.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher

	closed bool
	done   chan struct{}
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
}

// Send writes one named event with a JSON payload.
func (s *sseSink) Send(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return http.ErrHandlerTimeout
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a protocol comment. Keeps intermediaries from timing
// the connection out.
func (s *sseSink) Comment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return http.ErrHandlerTimeout
	}
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close releases the stream handler. Idempotent; called by the room
// when it is collected or the subscriber's player leaves.
func (s *sseSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Stream handles GET /stream/{game}/{code}: a long-lived SSE stream of
// room state snapshots. The client gets the current snapshot
// immediately, then a state event on every change, with heartbeat
// comments in between.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	gameName := chi.URLParam(r, "game")
	code := chi.URLParam(r, "code")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sink := newSSESink(w, flusher)

	var (
		cancel func()
		err    error
	)
	switch gameName {
	case "bingo":
		cancel, err = h.bingo.Subscribe(id, code, sink)
	case "croc":
		cancel, err = h.croc.Subscribe(id, code, sink)
	case "memory":
		cancel, err = h.memory.Subscribe(id, code, sink)
	case "gomoku":
		cancel, err = h.gomoku.Subscribe(id, code, sink)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.writeError(w, gameName, "subscribe", err)
		return
	}
	defer cancel()

	h.log.Debug("stream opened", "game", gameName, "room", code, "user", id.UserID)
	defer h.log.Debug("stream closed", "game", gameName, "room", code, "user", id.UserID)

	heartbeat := time.NewTicker(h.cfg.Server.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			sink.Close()
			return
		case <-sink.done:
			return
		case t := <-heartbeat.C:
			if sink.Comment("heartbeat "+t.UTC().Format(time.RFC3339)) != nil {
				sink.Close()
				return
			}
		}
	}
}

var _ game.Sink = (*sseSink)(nil)
