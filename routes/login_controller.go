package routes

import (
	"net/http"

	"github.com/gofrs/uuid"

	"github.com/mbolis/questionnaire/app"
	"github.com/mbolis/questionnaire/httpx"
	"github.com/mbolis/questionnaire/log"
	"github.com/mbolis/questionnaire/model"
	"github.com/mbolis/questionnaire/routes/middlewares"
)

const stateCookie = "oauth_state"

// Index starts the login handshake with the identity provider.
func Index(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, "login.state", err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     stateCookie,
			Value:    state.String(),
			MaxAge:   10 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, app.Identity.AuthCodeURL(state.String()), http.StatusFound)
	}
}

func AuthorizeCallback(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		state, err := r.Cookie(stateCookie)
		if err != nil || state.Value == "" || query.Get("state") != state.Value {
			log.Debug("login.state: mismatch")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Path: "/", Name: stateCookie, MaxAge: -1})

		if reason := query.Get("error"); reason != "" {
			log.Infof("login.denied: %s", reason)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		who, err := app.Identity.Identify(r.Context(), query.Get("code"))
		if err != nil {
			log.Warnf("login.identify: %s", err)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		startSession(w, r, app, who)
	}
}

// MockLogin logs in a made up respondent; only wired in mock mode.
func MockLogin(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := app.Identity.Identify(r.Context(), "")
		if err != nil {
			httpx.LogInternalError(w, "login.mock", err)
			return
		}
		startSession(w, r, app, who)
	}
}

func startSession(w http.ResponseWriter, r *http.Request, app app.App, who model.Identity) {
	err := middlewares.IssueSession(w, app.Sessions, who, app.SessionTTL)
	if err != nil {
		httpx.LogInternalError(w, "login.session", err)
		return
	}
	log.WithFields(log.Fields{"user": who.Name}).Info("login")
	http.Redirect(w, r, "/home", http.StatusFound)
}
