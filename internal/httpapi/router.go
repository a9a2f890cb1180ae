package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/telemetry"
)

type App struct {
	ServiceName string
	Sessions    *session.Manager

	Health   *HealthHandler
	Session  *SessionHandler
	Snippets *SnippetsHandler
	Views    *ViewsHandler
	UserData *UserDataHandler
}

func NewRouter(app *App) http.Handler {
	name := app.ServiceName
	if name == "" {
		name = "codever"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.ChiTraceMiddleware(name))
	r.Use(telemetry.ChiMetricsMiddleware)
	r.Use(telemetry.ChiLogMiddleware(name))

	r.Get("/health", app.Health.Get)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/session", app.Session.Login)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(session.Middleware(app.Sessions))

			r.Get("/session", app.Session.Current)
			r.Delete("/session", app.Session.Logout)

			r.Route("/snippets", func(r chi.Router) {
				r.Post("/", app.Snippets.Create)
				r.Get("/{id}", app.Snippets.Open)
				r.Put("/{id}", app.Snippets.Update)
				r.Delete("/{id}", app.Snippets.Delete)
				r.Post("/{id}/visit", app.Snippets.Visit)
				r.Put("/{id}/like", app.Snippets.Like)
				r.Delete("/{id}/like", app.Snippets.Unlike)
				r.Put("/{id}/pin", app.Snippets.Pin)
				r.Delete("/{id}/pin", app.Snippets.Unpin)
				r.Put("/{id}/read-later", app.Snippets.AddReadLater)
				r.Delete("/{id}/read-later", app.Snippets.RemoveReadLater)
			})

			r.Route("/views", func(r chi.Router) {
				r.Get("/feed", app.Views.Feed)
				r.Get("/public", app.Views.Public)
				r.Get("/personal", app.Views.Personal)
				r.Get("/history", app.Views.History)
				r.Get("/history/all", app.Views.AllHistory)
				r.Get("/pinned", app.Views.Pinned)
				r.Get("/read-later", app.Views.ReadLater)
				r.Get("/favorites", app.Views.Favorites)
				r.Get("/liked", app.Views.Liked)
				r.Get("/suggested-tags", app.Views.SuggestedTags)
			})

			r.Route("/userdata", func(r chi.Router) {
				r.Get("/", app.UserData.Get)
				r.Put("/", app.UserData.Update)
				r.Put("/feed-toggle", app.UserData.FeedToggle)
				r.Put("/local-storage", app.UserData.LocalStorage)
				r.Put("/welcome-ack", app.UserData.AcknowledgeWelcome)
				r.Put("/following/users/{id}", app.UserData.FollowUser)
				r.Delete("/following/users/{id}", app.UserData.UnfollowUser)
				r.Put("/watched-tags/{tag}", app.UserData.WatchTag)
				r.Delete("/watched-tags/{tag}", app.UserData.UnwatchTag)
				r.Put("/ignored-tags/{tag}", app.UserData.IgnoreTag)
				r.Delete("/ignored-tags/{tag}", app.UserData.UnignoreTag)
				r.Post("/searches", app.UserData.RecordSearch)
				r.Put("/searches/saved", app.UserData.SaveSearch)
			})
		})
	})
	return r
}
