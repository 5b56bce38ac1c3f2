package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/oauth"
	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/config"
	"github.com/mbolis/questionnaire/httpx"
	"github.com/mbolis/questionnaire/log"
	"github.com/mbolis/questionnaire/model"
)

// SessionCookie is where jwtauth.TokenFromCookie looks for the session token.
const SessionCookie = "jwt"

type identityKey struct{}

// IssueSession stores who in a signed session cookie valid for ttl.
func IssueSession(w http.ResponseWriter, ja *jwtauth.JWTAuth, who model.Identity, ttl time.Duration) error {
	claims := map[string]any{
		"sub":         who.ID,
		"name":        who.Name,
		"created_utc": who.CreatedUTC.Unix(),
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, ttl)

	_, token, err := ja.Encode(claims)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     SessionCookie,
		Value:    token,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Session lets through requests carrying a valid session cookie, with the
// respondent identity in the context. Everybody else is sent to log in.
func Session(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	verify := jwtauth.Verify(ja, jwtauth.TokenFromCookie)

	return func(next http.Handler) http.Handler {
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				log.Debugf("session.verify: %v", err)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			who, err := identityFromClaims(claims)
			if err != nil {
				log.Warnf("session.claims: %s", err)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, who)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}

func identityFromClaims(claims map[string]any) (model.Identity, error) {
	id, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if id == "" {
		return model.Identity{}, errors.New("no subject")
	}

	var created int64
	switch v := claims["created_utc"].(type) {
	case float64:
		created = int64(v)
	case int64:
		created = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return model.Identity{}, errors.Wrap(err, "created_utc")
		}
		created = n
	default:
		return model.Identity{}, errors.Errorf("created_utc has type %T", v)
	}

	return model.Identity{ID: id, Name: name, CreatedUTC: time.Unix(created, 0).UTC()}, nil
}

// CurrentIdentity returns the respondent put in ctx by Session.
func CurrentIdentity(ctx context.Context) (model.Identity, bool) {
	who, ok := ctx.Value(identityKey{}).(model.Identity)
	return who, ok
}

// Testers restricts a session route to the configured testers; anybody else
// is told the service is unavailable.
func Testers(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, _ := CurrentIdentity(r.Context())
			if !cfg.IsTester(who.Name) {
				httpx.LogStatus(w, http.StatusServiceUnavailable, log.InfoLevel, "results.not_tester")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Tester middleware to check for the 'tester' role in an OAuth token.
func Tester(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), tester).Handler(next)
	}
}

func tester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		isTester := false
		if rolesClaim, ok := claims["roles"]; ok {
			roles := strings.Split(rolesClaim, ",")
			for _, role := range roles {
				if role == httpx.RoleTester {
					isTester = true
					break
				}
			}
		}

		if !isTester {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
