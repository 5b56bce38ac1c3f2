package metrics

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/items/1", "/items/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/items/{id}", "418")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestCounter), "matched and unmatched routes are separate series")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight))
}

func TestSubmissions(t *testing.T) {
	m := New()
	m.Submissions.WithLabelValues(OutcomeNewVote).Inc()
	m.Submissions.WithLabelValues(OutcomeNewVote).Inc()
	m.Submissions.WithLabelValues(OutcomeTampered).Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues(OutcomeNewVote)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues(OutcomeTampered)))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.Submissions.WithLabelValues(OutcomeRevote).Inc()
	m.RecordDBPoolStats(sql.DBStats{OpenConnections: 3, InUse: 1, Idle: 2})

	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `questionnaire_submissions_total{outcome="revote"} 1`)
	assert.Contains(t, string(body), `questionnaire_db_connection_pool{stat="open"} 3`)
	assert.Contains(t, string(body), "go_goroutines")
}
