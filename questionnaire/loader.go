package questionnaire

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/cache"
	"github.com/mbolis/questionnaire/log"
)

const (
	DefaultTTL       = 5 * time.Minute
	DefaultUserAgent = "questionnaire/1.0"

	maxSchemaBytes = 4 << 20
)

// Source fetches the questionnaire document from a file or an HTTP(S) resource
// and keeps the raw text in a cache for TTL.
type Source struct {
	URL       string
	UserAgent string
	TTL       time.Duration

	client *http.Client
	cache  cache.Cache
}

// NewSource returns a Source whose HTTP fetches give up after timeout.
func NewSource(url string, timeout time.Duration, c cache.Cache) *Source {
	return &Source{
		URL:       url,
		UserAgent: DefaultUserAgent,
		TTL:       DefaultTTL,
		client:    &http.Client{Timeout: timeout},
		cache:     c,
	}
}

func (s *Source) cacheKey() string {
	return "schema:" + s.URL
}

// Load returns freshly parsed definitions. Only text that parses is cached.
func (s *Source) Load(ctx context.Context) ([]Definition, error) {
	text, err := s.cache.Get(ctx, s.cacheKey())
	if err == nil {
		defs, err := Parse(text)
		if err == nil {
			return defs, nil
		}
		log.Warnf("schema.cache.parse: %s", err)
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Warnf("schema.cache.get: %s", err)
	}

	text, err = s.fetch(ctx)
	if err != nil {
		return nil, &SchemaError{Op: "fetch", Err: err}
	}

	defs, err := Parse(text)
	if err != nil {
		return nil, &SchemaError{Op: "parse", Err: err}
	}

	if err := s.cache.Set(ctx, s.cacheKey(), text, s.TTL); err != nil {
		log.Warnf("schema.cache.set: %s", err)
	}
	log.Debugf("schema.load: %d documents from %s", len(defs), s.URL)
	return defs, nil
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}

	switch u.Scheme {
	case "":
		return os.ReadFile(s.URL)
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return os.ReadFile(filepath.FromSlash(path))
	case "http", "https":
		return s.fetchHTTP(ctx, u)
	}
	return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
}

// wiki pages answer {"data": {"content_md": "..."}}
type wikiPage struct {
	Data *struct {
		ContentMD string `json:"content_md"`
	} `json:"data"`
}

func (s *Source) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	q := u.Query()
	q.Set("raw_json", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s: %s", u.Redacted(), resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(body) > maxSchemaBytes {
		return nil, errors.Errorf("GET %s: body larger than %d bytes", u.Redacted(), maxSchemaBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return body, nil
	}

	var page wikiPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errors.Wrap(err, "decode wiki page")
	}
	if page.Data == nil {
		return nil, errors.New("wiki page has no data")
	}
	return []byte(page.Data.ContentMD), nil
}
