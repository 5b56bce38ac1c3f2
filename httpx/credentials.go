package httpx

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/questionnaire/config"
)

const RoleTester = "tester"

// refresh tokens of the results API live this long
const refreshTTL = 30 * 24 * time.Hour

var errNotSupported = errors.New("not supported")

// testerVerifier admits the results API clients: a tester name as client id
// and the shared secret whose bcrypt hash is configured.
type testerVerifier struct {
	db  *sql.DB
	cfg config.Config
	now func() time.Time
}

func CredentialsVerifier(db *sql.DB, cfg config.Config) oauth.CredentialsVerifier {
	return &testerVerifier{db: db, cfg: cfg, now: time.Now}
}

func (*testerVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	return errNotSupported
}

func (cs *testerVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	if !cs.cfg.IsTester(clientID) {
		return errors.Errorf("%s is not a tester", clientID)
	}
	if cs.cfg.TesterSecretHash == "" {
		return errors.New("results API disabled")
	}
	return bcrypt.CompareHashAndPassword([]byte(cs.cfg.TesterSecretHash), []byte(clientSecret))
}

func (cs *testerVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	_, err := cs.db.Exec(
		"INSERT INTO token (username, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)",
		credential,
		tokenID,
		refreshTokenID,
		cs.now().UTC().Add(refreshTTL),
	)
	return err
}

// ValidateTokenID consumes a refresh token: each one can be used once.
func (cs *testerVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	res, err := cs.db.Exec(`
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
			AND expiration > ?`,
		credential,
		tokenID,
		refreshTokenID,
		cs.now().UTC(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return errors.New("could not refresh")
	}

	if !cs.cfg.IsTester(credential) {
		return errors.Errorf("%s is no longer a tester", credential)
	}
	return nil
}

func (*testerVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{"roles": RoleTester}, nil
}

func (*testerVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

// NewBearerServer issues the results API tokens, signed with the token secret.
func NewBearerServer(db *sql.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(db, cfg), nil)
}
