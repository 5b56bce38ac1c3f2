package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/mbolis/questionnaire/app"
	"github.com/mbolis/questionnaire/httpx"
	"github.com/mbolis/questionnaire/model"
)

// Results reports the aggregated answers; ?json downloads them.
func Results(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, ok := aggregate(w, r, app)
		if !ok {
			return
		}

		if strings.EqualFold(r.URL.RawQuery, "json") {
			w.Header().Set("Content-Disposition", "attachment; filename=results.json")
			render.JSON(w, r, rows)
			return
		}
		renderPage(w, http.StatusOK, "results.html", resultsPage{Rows: rows})
	}
}

func APIResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, ok := aggregate(w, r, app)
		if !ok {
			return
		}
		render.JSON(w, r, rows)
	}
}

// Token issues results API tokens (client_credentials and refresh_token grants).
func Token(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.ClientCredentials(w, r)
	}
}

func aggregate(w http.ResponseWriter, r *http.Request, app app.App) ([]model.ResultRow, bool) {
	q, ok := loadQuestionnaire(w, r, app)
	if !ok {
		return nil, false
	}

	rows, err := app.Results.Results(r.Context(), q.Questions())
	if err != nil {
		httpx.LogInternalError(w, "results.aggregate", err)
		return nil, false
	}
	if rows == nil {
		rows = []model.ResultRow{}
	}
	return rows, true
}
