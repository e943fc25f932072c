package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"videotube/internal/handler"
	"videotube/internal/httputil"
	"videotube/internal/token"
	"videotube/internal/transport/http/middleware"
)

// Per-IP limit on the credential endpoints.
const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	RelationHandler *handler.RelationHandler
	CommentHandler  *handler.CommentHandler
	ChannelHandler  *handler.ChannelHandler
	VideoHandler    *handler.VideoHandler
	PlaylistHandler *handler.PlaylistHandler
	Signer          *token.Signer
	AllowedOrigins  []string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireAuth := middleware.Auth(cfg.Signer)
	optionalAuth := middleware.OptionalAuth(cfg.Signer)

	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.Limit(authRateLimit, authRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httputil.WriteError(w, http.StatusTooManyRequests, httputil.ErrCodeTooManyRequests, "too many requests")
			}),
		))

		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
		r.With(requireAuth).Post("/logout", cfg.AuthHandler.Logout)
		r.With(requireAuth).Post("/change-password", cfg.AuthHandler.ChangePassword)
	})

	// Public reads; a signed-in caller gets viewer-specific flags.
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)

		r.Get("/channels/{username}", cfg.ChannelHandler.Profile)
		r.Get("/videos/{videoId}", cfg.VideoHandler.Get)
		r.Post("/videos/{videoId}/views", cfg.VideoHandler.View)
		r.Get("/videos/{videoId}/comments", cfg.CommentHandler.List)
		r.Get("/comments/{commentId}/replies", cfg.CommentHandler.Replies)
		r.Get("/subscriptions/c/{channelId}", cfg.RelationHandler.ListSubscribers)
		r.Get("/subscriptions/u/{accountId}", cfg.RelationHandler.ListSubscriptions)
		r.Get("/playlists/{playlistId}", cfg.PlaylistHandler.Get)
		r.Get("/playlists/user/{accountId}", cfg.PlaylistHandler.ListByOwner)
		r.Get("/dashboard/stats/{accountId}", cfg.ChannelHandler.Stats)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", cfg.AuthHandler.Me)
		r.Get("/me/history", cfg.ChannelHandler.History)

		r.Post("/videos", cfg.VideoHandler.Publish)
		r.Post("/videos/{videoId}/comments", cfg.CommentHandler.Create)
		r.Patch("/comments/{commentId}", cfg.CommentHandler.Update)
		r.Delete("/comments/{commentId}", cfg.CommentHandler.Delete)

		r.Get("/likes/videos", cfg.RelationHandler.LikedVideos)
		r.Post("/likes/{kind}/{id}", cfg.RelationHandler.ToggleLike)
		r.Post("/subscriptions/c/{channelId}", cfg.RelationHandler.ToggleSubscription)

		r.Post("/playlists", cfg.PlaylistHandler.Create)
		r.Put("/playlists/{playlistId}/videos/{videoId}", cfg.PlaylistHandler.AddVideo)
		r.Delete("/playlists/{playlistId}/videos/{videoId}", cfg.PlaylistHandler.RemoveVideo)
	})

	return r
}

func allowedOrigins(configured []string) []string {
	if len(configured) == 0 {
		return []string{"http://localhost:3000"}
	}
	return configured
}
