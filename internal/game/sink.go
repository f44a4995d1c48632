package game

import (
	"encoding/json"
	"log/slog"
)

// Sink is one subscriber's event stream. Implementations must be safe
// for concurrent writes; broadcasts and heartbeats come from different
// goroutines.
type Sink interface {
	// Send writes one named event with a JSON payload.
	Send(event string, data []byte) error
	// Comment writes a protocol comment (heartbeats).
	Comment(text string) error
	// Close tears the stream down. Idempotent.
	Close()
}

type subscriber struct {
	sink   Sink
	userID string
}

// attachSubscriber registers a sink for userID and bumps the presence
// reference count. Lock held by caller.
func (b *Base) attachSubscriber(userID string, sink Sink) *subscriber {
	sub := &subscriber{sink: sink, userID: userID}
	b.subscribers[sub] = struct{}{}
	b.connections[userID]++
	return sub
}

// detachSubscriber removes a sink and drops the presence reference
// count, flooring at zero. Returns the remaining count. Lock held by
// caller.
func (b *Base) detachSubscriber(sub *subscriber) int {
	delete(b.subscribers, sub)
	if n := b.connections[sub.userID]; n > 0 {
		b.connections[sub.userID] = n - 1
	}
	return b.connections[sub.userID]
}

// broadcast serializes the snapshot once and writes it to every sink.
// Failed writes are swallowed; dead sinks are reaped when their
// transport closes through the unsubscribe path. Lock held by caller.
func (b *Base) broadcast(snapshot any) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("snapshot marshal failed", "room", b.Code, "err", err)
		return
	}
	for sub := range b.subscribers {
		_ = sub.sink.Send("state", data)
	}
}

// sendTo pushes the snapshot to a single sink (the initial push on
// subscribe). Lock held by caller.
func (b *Base) sendTo(sink Sink, snapshot any) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("snapshot marshal failed", "room", b.Code, "err", err)
		return
	}
	_ = sink.Send("state", data)
}

// closeSubscribers closes every sink and empties the subscriber set.
// Used when a room is garbage collected. Lock held by caller.
func (b *Base) closeSubscribers() {
	for sub := range b.subscribers {
		sub.sink.Close()
		delete(b.subscribers, sub)
	}
	b.connections = make(map[string]int)
}
