package app

import (
	"database/sql"
	"net/url"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/oauth"
	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/cache"
	"github.com/mbolis/questionnaire/config"
	"github.com/mbolis/questionnaire/httpx"
	"github.com/mbolis/questionnaire/identity"
	"github.com/mbolis/questionnaire/ledger"
	"github.com/mbolis/questionnaire/metrics"
	"github.com/mbolis/questionnaire/questionnaire"
	"github.com/mbolis/questionnaire/results"
)

// CallbackPath receives the identity provider redirect.
const CallbackPath = "/authorize_callback"

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Schema   *questionnaire.Source
	Ledger   *ledger.Ledger
	Results  *results.Aggregator
	Identity identity.Provider
	// Verifier is nil when human verification is off.
	Verifier identity.Verifier
	Sessions *jwtauth.JWTAuth
	Metrics  *metrics.Metrics
}

// New assembles the collaborators described by cfg around an open database.
func New(cfg config.Config, db *sql.DB) (App, error) {
	var c cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		client, err := cache.Dial(cfg.RedisURL)
		if err != nil {
			return App{}, errors.Wrap(err, "redis")
		}
		c = cache.NewRedis(client, "questionnaire:")
	}

	schema := questionnaire.NewSource(cfg.QuestionnaireURL, cfg.FetchTimeout, c)
	schema.TTL = cfg.SchemaTTL
	schema.UserAgent = cfg.UserAgent

	var provider identity.Provider
	if cfg.Mock {
		provider = identity.NewMock(0)
	} else {
		base, err := url.Parse(cfg.OAuthRedirectURL)
		if err != nil {
			return App{}, errors.Wrap(err, "redirect url")
		}
		redirect := base.ResolveReference(&url.URL{Path: CallbackPath}).String()
		reddit := identity.NewReddit(cfg.OAuthClientID, cfg.OAuthClientSecret, redirect, cfg.UserAgent)
		reddit.Timeout = cfg.FetchTimeout
		provider = reddit
	}

	var verifier identity.Verifier
	if cfg.RecaptchaEnabled() {
		verifier = identity.NewRecaptcha(cfg.RecaptchaSecret, cfg.FetchTimeout)
	}

	return App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Schema:       schema,
		Ledger:       ledger.New(db),
		Results:      results.New(db),
		Identity:     provider,
		Verifier:     verifier,
		Sessions:     jwtauth.New("HS256", []byte(cfg.TokenSecret), nil),
		Metrics:      metrics.New(),
	}, nil
}
