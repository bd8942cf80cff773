package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/smartmarks-server/internal/api/http/handler"
	mw "github.com/dtroode/smartmarks-server/internal/api/http/middleware"
	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// Services groups the collaborators the router wires into handlers.
type Services struct {
	Bookmarks handler.BookmarkService
	Auth      handler.AuthService
	Exports   handler.ExportService
	Tokens    mw.TokenService
	Feed      model.ChangeFeed
	Database  handler.Pinger
}

// Options tunes transport behaviour.
type Options struct {
	AuthRateLimit float64
	AuthRateBurst int
	PingInterval  time.Duration
}

// Router represents the HTTP router for smartmarks operations.
// It manages route registration and middleware configuration.
type Router struct {
	services       Services
	options        Options
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
//
// Parameters:
//   - services: The services behind the handlers
//   - options: Rate limit and realtime settings
//   - contextManager: Stores the authenticated user in request contexts
//   - logger: The logger for request logging
//
// Returns a pointer to the newly created Router instance.
func New(services Services, options Options, contextManager model.ContextManager, logger *logger.Logger) *Router {
	return &Router{
		services:       services,
		options:        options,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register builds the handler tree with request id, panic recovery and access
// logging on every route, and authentication on everything except
// registration, login, refresh and health probes.
func (r *Router) Register() http.Handler {
	logging := mw.NewLogging(r.logger)
	authenticate := mw.NewAuthenticate(r.services.Tokens, r.contextManager, r.logger)
	rateLimit := mw.NewRateLimit(r.options.AuthRateLimit, r.options.AuthRateBurst)

	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(middleware.RealIP)
	root.Use(logging.Handler)
	root.Use(middleware.Recoverer)

	root.Get("/healthz", handler.Healthz)
	root.Get("/readyz", handler.Readyz(r.services.Database))

	root.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			r.registerAuthRoutes(auth, rateLimit, authenticate)
		})
		api.Route("/bookmarks", func(bookmarks chi.Router) {
			bookmarks.Use(authenticate.Handler)
			r.registerBookmarkRoutes(bookmarks)
		})
	})

	return root
}

func (r *Router) registerAuthRoutes(auth chi.Router, rateLimit *mw.RateLimit, authenticate *mw.Authenticate) {
	h := handler.NewAuth(r.services.Auth, r.contextManager, r.logger)

	auth.Group(func(public chi.Router) {
		public.Use(rateLimit.Handler)
		public.Post("/register", h.Register)
		public.Post("/login", h.Login)
		public.Post("/refresh", h.Refresh)
	})

	auth.Group(func(private chi.Router) {
		private.Use(authenticate.Handler)
		private.Post("/signout", h.SignOut)
		private.Get("/me", h.Me)
	})
}

func (r *Router) registerBookmarkRoutes(bookmarks chi.Router) {
	h := handler.NewBookmark(r.services.Bookmarks, r.contextManager, r.logger)
	bookmarks.Get("/", h.List)
	bookmarks.Post("/", h.Create)
	bookmarks.Delete("/", h.Delete)

	realtime := handler.NewRealtime(r.services.Feed, r.contextManager, r.options.PingInterval, r.logger)
	bookmarks.Get("/realtime", realtime.Stream)

	exports := handler.NewExport(r.services.Exports, r.contextManager, r.logger)
	bookmarks.Post("/exports", exports.Create)
	bookmarks.Get("/exports/{name}", exports.Download)
}
