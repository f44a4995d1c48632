package identity

import (
	"context"
)

// BotUserID is the reserved user id for the server-controlled Bingo
// player. It is rejected for human identities at the middleware layer
// so it can never collide with a real user.
const BotUserID = "__bot__"

// BotUsername is the display name of the server-controlled player.
const BotUsername = "컴퓨터"

// Identity is the authenticated caller of an operation. It is issued
// by an external session layer; the server only consumes it.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Bot returns the reserved bot identity.
func Bot() Identity {
	return Identity{UserID: BotUserID, Username: BotUsername}
}

// IsBot reports whether id names the reserved bot user.
func (id Identity) IsBot() bool {
	return id.UserID == BotUserID
}

type contextKey struct{}

// NewContext returns ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the identity stored by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
