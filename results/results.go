// Package results counts stored answers and turns them back into readable rows.
package results

import (
	"context"
	"database/sql"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/model"
	"github.com/mbolis/questionnaire/questionnaire"
)

// Count is one (code, value) group of stored answers.
type Count struct {
	Code  string
	Value string
	Votes int
}

type Aggregator struct {
	db *sql.DB
}

func New(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

func (a *Aggregator) Counts(ctx context.Context) ([]Count, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT code, value, COUNT(*)
		FROM answer
		GROUP BY code, value`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query counts")
	}
	defer rows.Close()

	var counts []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Code, &c.Value, &c.Votes); err != nil {
			return nil, errors.Wrap(err, "scan counts")
		}
		counts = append(counts, c)
	}
	return counts, errors.Wrap(rows.Err(), "read counts")
}

// Results decodes every answer group against the numbered questions, sorted.
func (a *Aggregator) Results(ctx context.Context, questions []questionnaire.Definition) ([]model.ResultRow, error) {
	counts, err := a.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return Expand(questions, counts)
}

// Expand decodes the groups and sorts the rows. Any group that does not
// decode fails the whole report.
func Expand(questions []questionnaire.Definition, counts []Count) ([]model.ResultRow, error) {
	rows := make([]model.ResultRow, 0, len(counts))
	for _, c := range counts {
		row, err := questionnaire.Decode(questions, c.Code, c.Value, c.Votes)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	Sort(rows)
	return rows, nil
}

// Sort orders rows by question, then field key suffix, then answer value.
func Sort(rows []model.ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.SortOrder.Question != b.SortOrder.Question {
			return a.SortOrder.Question < b.SortOrder.Question
		}
		if c := compareParts(a.SortOrder.Parts, b.SortOrder.Parts); c != 0 {
			return c < 0
		}
		return a.AnswerValue < b.AnswerValue
	})
}

func compareParts(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := comparePart(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// matrix lines compare as numbers so that line 10 follows line 9
func comparePart(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x - y
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
