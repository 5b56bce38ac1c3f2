package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/mbolis/questionnaire/model"
)

const (
	RedditAuthURL  = "https://www.reddit.com/api/v1/authorize"
	RedditTokenURL = "https://www.reddit.com/api/v1/access_token"
	RedditMeURL    = "https://oauth.reddit.com/api/v1/me"
)

// Reddit identifies respondents through the Reddit OAuth2 API with the
// "identity" scope and a temporary grant.
type Reddit struct {
	Config    *oauth2.Config
	MeURL     string
	UserAgent string
	Timeout   time.Duration
}

func NewReddit(clientID, clientSecret, redirectURL, userAgent string) *Reddit {
	return &Reddit{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identity"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   RedditAuthURL,
				TokenURL:  RedditTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		MeURL:     RedditMeURL,
		UserAgent: userAgent,
		Timeout:   10 * time.Second,
	}
}

func (r *Reddit) AuthCodeURL(state string) string {
	return r.Config.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "temporary"))
}

type redditMe struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CreatedUTC float64 `json:"created_utc"`
}

func (r *Reddit) Identify(ctx context.Context, code string) (model.Identity, error) {
	// Reddit rejects requests without a descriptive User-Agent, token exchange included
	base := &http.Client{
		Timeout:   r.Timeout,
		Transport: userAgent{agent: r.UserAgent, next: http.DefaultTransport},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	token, err := r.Config.Exchange(ctx, code)
	if err != nil {
		return model.Identity{}, errors.Wrap(err, "exchange code")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.MeURL, nil)
	if err != nil {
		return model.Identity{}, err
	}
	resp, err := r.Config.Client(ctx, token).Do(req)
	if err != nil {
		return model.Identity{}, errors.Wrap(err, "get me")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Identity{}, errors.Errorf("get me: %s", resp.Status)
	}

	var me redditMe
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return model.Identity{}, errors.Wrap(err, "decode me")
	}
	if me.ID == "" {
		return model.Identity{}, errors.New("get me: empty id")
	}

	return model.Identity{
		ID:         me.ID,
		Name:       me.Name,
		CreatedUTC: time.Unix(int64(me.CreatedUTC), 0).UTC(),
	}, nil
}

type userAgent struct {
	agent string
	next  http.RoundTripper
}

func (t userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}
