package routes

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/mbolis/questionnaire/httpx"
	"github.com/mbolis/questionnaire/model"
	"github.com/mbolis/questionnaire/questionnaire"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"indent": func(depth int) string {
		return strings.Repeat("\u00a0\u00a0", depth)
	},
	"depth": func(f questionnaire.Field) int {
		if len(f.Options) == 0 {
			return 0
		}
		return f.Options[0].Depth
	},
	"answerText": func(text string) string {
		return strings.TrimPrefix(text, questionnaire.NullAnswer)
	},
}).ParseFS(templateFS, "templates/*.html"))

type itemView struct {
	questionnaire.Definition
	Fields []questionnaire.Field
}

type homePage struct {
	User             model.Identity
	Items            []itemView
	Answers          map[string]string
	RecaptchaSiteKey string
}

type donePage struct {
	NoCookie  bool
	Tamper    bool
	Error     bool
	ReceiptID string
	IsTester  bool
}

type restorePage struct {
	Error     string
	ReceiptID string
}

type resultsPage struct {
	Rows []model.ResultRow
}

func newHomePage(who model.Identity, q questionnaire.Questionnaire, answers map[string]string, siteKey string) homePage {
	items := make([]itemView, len(q.Items))
	for i, def := range q.Items {
		items[i] = itemView{Definition: def}
		if def.Numbered() {
			items[i].Fields = questionnaire.Encode(def)
		}
	}
	if answers == nil {
		answers = map[string]string{}
	}
	return homePage{User: who, Items: items, Answers: answers, RecaptchaSiteKey: siteKey}
}

// renderPage executes the whole template before writing, so a failing
// template still gets a clean 500.
func renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		httpx.LogInternalError(w, "template."+name, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	buf.WriteTo(w)
}
