package identity

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// MaxUsernameLength bounds display names; anything longer is rejected
// with username_length before the request reaches a room.
const MaxUsernameLength = 20

// Claims is the session token payload. Subject carries the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Middleware authenticates every request and stores the resulting
// Identity on the request context.
//
// With a non-empty secret, a HS256 JWT is expected in the
// Authorization bearer header or the "session" cookie. With an empty
// secret the identity is taken from the X-User-Id / X-User-Name
// headers, for deployments where a fronting gateway has already
// authenticated the caller (and for tests).
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, secret)
			if err != "" {
				status := http.StatusUnauthorized
				if err == "username_length" {
					status = http.StatusBadRequest
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(status)
				fmt.Fprintf(w, `{"ok":false,"error":%q}`+"\n", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

// authenticate resolves the caller's identity, returning an error code
// from the stable vocabulary ("" on success).
func authenticate(r *http.Request, secret string) (Identity, string) {
	var id Identity

	if secret == "" {
		id = Identity{
			UserID:   r.Header.Get("X-User-Id"),
			Username: r.Header.Get("X-User-Name"),
		}
	} else {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie("session"); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			return id, "unauthorized"
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			return id, "unauthorized"
		}
		id = Identity{UserID: claims.Subject, Username: claims.Username}
	}

	if id.UserID == "" || id.UserID == BotUserID {
		return id, "unauthorized"
	}
	if n := utf8.RuneCountInString(id.Username); n < 1 || n > MaxUsernameLength {
		return id, "username_length"
	}
	return id, ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
