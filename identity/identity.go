// Package identity talks to the collaborators that tell us who the respondent
// is (an OAuth2 identity provider, or a mock in development) and whether they
// are human.
package identity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/model"
)

var ErrVerificationFailed = errors.New("human verification failed")

// Provider runs the redirect based handshake.
type Provider interface {
	// AuthCodeURL is where the respondent is sent to log in.
	AuthCodeURL(state string) string
	// Identify trades the code handed back on the callback for the respondent identity.
	Identify(ctx context.Context, code string) (model.Identity, error)
}

// Verifier checks a human verification response.
type Verifier interface {
	Verify(ctx context.Context, response, remoteIP string) error
}
