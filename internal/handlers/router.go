package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"playroom/internal/identity"
	"playroom/internal/middleware"
)

// RouterOptions toggles the outer middleware stack, mostly so tests
// can exercise handlers without rate limits in the way.
type RouterOptions struct {
	EnableRateLimiting bool
}

// SetupRouter wires the full HTTP surface. Every game route sits
// behind the identity middleware; health probes do not.
func (h *Handler) SetupRouter(opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimiter(h.cfg.Server.MaxRequestSize))

	if opts.EnableRateLimiting {
		rl := middleware.NewRateLimiter(h.cfg.Server.RateLimit, h.cfg.Server.RateLimitBurst)
		r.Use(rl.Middleware())
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(h.cfg.Server.SessionSecret))

		r.Post("/create/{game}", h.CreateRoom)
		r.Get("/stream/{game}/{code}", h.Stream)

		r.Route("/{game}/{code}", func(r chi.Router) {
			r.Get("/", h.GetRoom)
			r.Post("/join", h.JoinRoom)
			r.Post("/leave", h.LeaveRoom)
			r.Post("/start", h.StartGame)

			// Game-specific moves share the subtree; each handler
			// rejects the wrong game with 404.
			r.Post("/draw", h.BingoDraw)
			r.Post("/pick", h.Pick)
			r.Post("/move", h.GomokuMove)
		})
	})

	return r
}
