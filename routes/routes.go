package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/mbolis/questionnaire/app"
	"github.com/mbolis/questionnaire/httpx"
	"github.com/mbolis/questionnaire/identity"
	"github.com/mbolis/questionnaire/routes/middlewares"
)

const callbackPath = app.CallbackPath

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, app.Metrics.Middleware)
	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogNotFound(w, "route", r.URL.Path)
	})

	root.Get("/", Index(app))
	root.Get(callbackPath, AuthorizeCallback(app))
	if app.Config.Mock {
		root.Get(identity.MockLoginPath, MockLogin(app))
	}

	root.Group(func(r chi.Router) {
		r.Use(middlewares.Session(app.Sessions))

		r.Get("/home", Home(app))
		r.Post("/done", Save(app))
		r.Get("/restore_cookie", RestoreCookieForm(app))
		r.Post("/restore_cookie", RestoreCookie(app))
		r.With(middlewares.Testers(app.Config)).Get("/results", Results(app))
	})

	root.Mount("/api", apiRouter(app))

	root.Get("/health", Health(app))
	root.Method(http.MethodGet, "/metrics", app.Metrics.Handler(app.DB))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/token", Token(app))
	api.With(middlewares.Tester(app.Config.TokenSecret)).Get("/results", APIResults(app))

	return api
}

func Health(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.PingContext(r.Context()); err != nil {
			httpx.LogUnavailable(w, "health.db", err)
			return
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
