package config

import (
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Addr        string        `validate:"required"`
	DBUrl       string        `validate:"required"`
	TokenSecret string        `validate:"required"`
	TokenTTL    time.Duration `validate:"gt=0"`
	SessionTTL  time.Duration `validate:"gt=0"`
	Debug       bool

	QuestionnaireURL string        `validate:"required"`
	SchemaTTL        time.Duration `validate:"gt=0"`
	FetchTimeout     time.Duration `validate:"gt=0"`
	UserAgent        string        `validate:"required"`
	RedisURL         string        `validate:"omitempty,url"`

	OAuthClientID     string `validate:"required_without=Mock"`
	OAuthClientSecret string `validate:"required_with=OAuthClientID"`
	OAuthRedirectURL  string `validate:"required_with=OAuthClientID,omitempty,url"`
	Mock              bool

	Testers          string
	TesterSecretHash string

	RecaptchaSiteKey string `validate:"required_with=RecaptchaSecret"`
	RecaptchaSecret  string
}

// ParseFlags reads the command line; every flag defaults to an environment
// variable, and a .env file in the working directory is loaded first if present.
func ParseFlags(args []string) (cfg Config, err error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "load .env")
	}

	fs := flag.NewFlagSet("questionnaire", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("PORT", 80), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", env("DATABASE_URL", "questionnaire.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("TOKEN_SECRET", ""), "secret key for session and API tokens")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", envUint("TOKEN_TTL", 120), "API token TTL in seconds")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", envDuration("SESSION_TTL", 24*time.Hour), "login session TTL")
	fs.BoolVar(&cfg.Debug, "debug", envBool("DEBUG", false), "log at DEBUG level")

	fs.StringVar(&cfg.QuestionnaireURL, "questionnaire-url", env("QUESTIONNAIRE_URL", ""), "questionnaire source: file path, file:// or http(s):// URL")
	fs.DurationVar(&cfg.SchemaTTL, "schema-ttl", envDuration("SCHEMA_TTL", 5*time.Minute), "how long a fetched questionnaire is reused")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", envDuration("FETCH_TIMEOUT", 10*time.Second), "timeout of outgoing HTTP calls")
	fs.StringVar(&cfg.UserAgent, "user-agent", env("USER_AGENT", "go:questionnaire:v1.0"), "User-Agent of outgoing HTTP calls")
	fs.StringVar(&cfg.RedisURL, "redis-url", env("REDIS_URL", ""), "share the questionnaire cache through Redis")

	fs.StringVar(&cfg.OAuthClientID, "oauth-client-id", env("REDDIT_OAUTH_CLIENT_ID", ""), "Reddit OAuth2 client id")
	fs.StringVar(&cfg.OAuthClientSecret, "oauth-client-secret", env("REDDIT_OAUTH_CLIENT_SECRET", ""), "Reddit OAuth2 client secret")
	fs.StringVar(&cfg.OAuthRedirectURL, "oauth-redirect-url", env("REDDIT_OAUTH_REDIRECT_URL", ""), "base URL the OAuth2 callback is served on")
	fs.BoolVar(&cfg.Mock, "mock", envBool("MOCK", false), "log in with fake identities")

	fs.StringVar(&cfg.Testers, "testers", env("TESTERS", ""), "user names allowed to see the results")
	fs.StringVar(&cfg.TesterSecretHash, "tester-secret-hash", env("TESTER_SECRET_HASH", ""), "bcrypt hash of the results API client secret")

	fs.StringVar(&cfg.RecaptchaSiteKey, "recaptcha-site-key", env("RECAPTCHA_SITE_KEY", ""), "reCAPTCHA site key")
	fs.StringVar(&cfg.RecaptchaSecret, "recaptcha-secret", env("RECAPTCHA_SECRET", ""), "reCAPTCHA secret; enables the check")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	err = validator.New().Struct(cfg)
	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

var nonWord = regexp.MustCompile(`\W+`)

// TesterNames splits the testers list on anything that is not a word character.
func (cfg Config) TesterNames() []string {
	var names []string
	for _, name := range nonWord.Split(cfg.Testers, -1) {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (cfg Config) IsTester(name string) bool {
	if name == "" {
		return false
	}
	for _, tester := range cfg.TesterNames() {
		if tester == name {
			return true
		}
	}
	return false
}

// RecaptchaEnabled reports whether submissions need a human verification.
func (cfg Config) RecaptchaEnabled() bool {
	return cfg.RecaptchaSecret != ""
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envUint(key string, def uint) uint {
	v, err := strconv.ParseUint(os.Getenv(key), 10, 0)
	if err != nil {
		return def
	}
	return uint(v)
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
