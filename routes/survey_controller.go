package routes

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/app"
	"github.com/mbolis/questionnaire/httpx"
	"github.com/mbolis/questionnaire/ledger"
	"github.com/mbolis/questionnaire/log"
	"github.com/mbolis/questionnaire/metrics"
	"github.com/mbolis/questionnaire/model"
	"github.com/mbolis/questionnaire/questionnaire"
	"github.com/mbolis/questionnaire/routes/middlewares"
)

const receiptMaxAge = 365 * 24 * time.Hour

// Home shows the questionnaire, filled in with the previous answers on a revisit.
func Home(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, _ := middlewares.CurrentIdentity(r.Context())

		q, ok := loadQuestionnaire(w, r, app)
		if !ok {
			return
		}
		if !eligible(w, r, q, who) {
			return
		}

		answers, err := app.Ledger.Lookup(r.Context(), who.ID, receiptCookie(r))
		switch {
		case errors.Is(err, ledger.ErrMissingCookie):
			renderPage(w, http.StatusOK, "done.html", donePage{NoCookie: true})
			return
		case errors.Is(err, ledger.ErrTampered):
			renderPage(w, http.StatusOK, "done.html", donePage{Tamper: true})
			return
		case err != nil:
			httpx.LogInternalError(w, "db.lookup", err)
			return
		}

		renderPage(w, http.StatusOK, "home.html", newHomePage(who, q, answers, app.RecaptchaSiteKey))
	}
}

// Save records the submitted answers.
func Save(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, _ := middlewares.CurrentIdentity(r.Context())

		if err := r.ParseForm(); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_form", "bad form: %s", err)
			return
		}

		if app.Verifier != nil {
			err := app.Verifier.Verify(r.Context(), r.PostForm.Get("g-recaptcha-response"), remoteIP(r))
			if err != nil {
				log.Infof("save.recaptcha: %s", err)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
		}

		q, ok := loadQuestionnaire(w, r, app)
		if !ok {
			return
		}
		if !eligible(w, r, q, who) {
			app.Metrics.Submissions.WithLabelValues(metrics.OutcomeIneligible).Inc()
			return
		}

		cookie := receiptCookie(r)
		res, err := app.Ledger.Submit(r.Context(), who.ID, cookie, ledger.Sanitize(r.PostForm))

		var storageErr *ledger.StorageError
		switch {
		case errors.Is(err, ledger.ErrMissingCookie):
			app.Metrics.Submissions.WithLabelValues(metrics.OutcomeNoCookie).Inc()
			renderPage(w, http.StatusOK, "done.html", donePage{NoCookie: true})
			return
		case errors.Is(err, ledger.ErrTampered):
			app.Metrics.Submissions.WithLabelValues(metrics.OutcomeTampered).Inc()
			log.Infof("save.tampered: %s", err)
			renderPage(w, http.StatusOK, "done.html", donePage{Tamper: true})
			return
		case errors.As(err, &storageErr):
			app.Metrics.Submissions.WithLabelValues(metrics.OutcomeError).Inc()
			log.Errorf("db.submit_vote: %s", err)
			renderPage(w, http.StatusInternalServerError, "done.html", donePage{Error: true})
			return
		case err != nil:
			app.Metrics.Submissions.WithLabelValues(metrics.OutcomeError).Inc()
			httpx.LogInternalError(w, "save.submit", err)
			return
		}

		receipt := cookie
		if res.NewReceipt {
			receipt = res.Token
			setReceiptCookie(w, receipt)
			app.Metrics.Submissions.WithLabelValues(metrics.OutcomeNewVote).Inc()
		} else {
			app.Metrics.Submissions.WithLabelValues(metrics.OutcomeRevote).Inc()
		}

		renderPage(w, http.StatusOK, "done.html", donePage{
			ReceiptID: receipt,
			IsTester:  app.IsTester(who.Name),
		})
	}
}

func RestoreCookieForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, http.StatusOK, "restore_cookie.html", restorePage{})
	}
}

// RestoreCookie puts a receipt id typed in by the respondent back in the cookie.
func RestoreCookie(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_form", "bad form: %s", err)
			return
		}

		receipt := strings.TrimSpace(r.PostForm.Get("receipt_id"))
		if _, err := ledger.ParseToken(receipt); err != nil {
			log.Debugf("restore_cookie.parse: %s", err)
			renderPage(w, http.StatusBadRequest, "restore_cookie.html", restorePage{
				Error:     "This is not a receipt id.",
				ReceiptID: receipt,
			})
			return
		}

		setReceiptCookie(w, receipt)
		http.Redirect(w, r, "/home", http.StatusFound)
	}
}

func loadQuestionnaire(w http.ResponseWriter, r *http.Request, app app.App) (questionnaire.Questionnaire, bool) {
	defs, err := app.Schema.Load(r.Context())
	if err != nil {
		app.Metrics.SchemaLoads.WithLabelValues("error").Inc()
		httpx.LogUnavailable(w, "schema.load", err)
		return questionnaire.Questionnaire{}, false
	}
	app.Metrics.SchemaLoads.WithLabelValues("ok").Inc()
	return questionnaire.Prepare(defs), true
}

// eligible answers the request itself when who may not take the questionnaire.
func eligible(w http.ResponseWriter, r *http.Request, q questionnaire.Questionnaire, who model.Identity) bool {
	err := questionnaire.CheckEligibility(q.Config, who)
	if errors.Is(err, questionnaire.ErrNotEligible) {
		log.Debugf("eligibility: %s", err)
		render.PlainText(w, r, "Your account is too new")
		return false
	}
	if err != nil {
		httpx.LogUnavailable(w, "schema.config", err)
		return false
	}
	return true
}

func receiptCookie(r *http.Request) string {
	c, err := r.Cookie(ledger.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func setReceiptCookie(w http.ResponseWriter, receipt string) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     ledger.CookieName,
		Value:    receipt,
		MaxAge:   int(receiptMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// remoteIP strips the port; middleware.RealIP may already have.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
