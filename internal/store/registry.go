// Package store keeps the per-game room registries. Each registry owns
// only the code → room mapping; the rooms themselves carry their own
// locks.
package store

import (
	"errors"
	"strings"
	"sync"

	"playroom/internal/random"
)

// codeAlphabet is the 32-symbol room code alphabet. Visually ambiguous
// glyphs (0/O, 1/I) are excluded.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of every room code.
const CodeLength = 6

// ErrCodeCollision is returned when no free room code was found after
// the retry budget.
var ErrCodeCollision = errors.New("room code collision")

// Registry is a concurrent code → room mapping for one game kind.
type Registry[R any] struct {
	mu    sync.RWMutex
	rooms map[string]R
	src   random.Source
}

// NewRegistry creates an empty registry drawing codes from src.
func NewRegistry[R any](src random.Source) *Registry[R] {
	return &Registry[R]{
		rooms: make(map[string]R),
		src:   src,
	}
}

// Create allocates a fresh room code, invokes build with it and
// registers the result. Codes are retried up to 10 times on collision.
func (reg *Registry[R]) Create(build func(code string) R) (R, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for i := 0; i < 10; i++ {
		code = reg.generateCode()
		if _, exists := reg.rooms[code]; !exists {
			room := build(code)
			reg.rooms[code] = room
			return room, nil
		}
	}

	var zero R
	return zero, ErrCodeCollision
}

// Get retrieves a room by code. Lookups are case-insensitive.
func (reg *Registry[R]) Get(code string) (R, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[strings.ToUpper(code)]
	return room, ok
}

// Delete removes a room from the registry. The caller is responsible
// for holding the room's own lock and having confirmed emptiness.
func (reg *Registry[R]) Delete(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, strings.ToUpper(code))
}

// Len returns the number of registered rooms.
func (reg *Registry[R]) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms)
}

// Snapshot returns the current rooms. Used by the stale-room sweeper;
// the slice is a copy, the rooms are shared.
func (reg *Registry[R]) Snapshot() []R {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]R, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		out = append(out, room)
	}
	return out
}

func (reg *Registry[R]) generateCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[reg.src.Intn(len(codeAlphabet))]
	}
	return string(b)
}
