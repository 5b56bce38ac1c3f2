package model

import "time"

// Identity is what the identity provider tells us about the respondent.
type Identity struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedUTC time.Time `json:"created_utc"`
}

// SortKey orders result rows: question index first, then the field key suffix parts.
type SortKey struct {
	Question int
	Parts    []string
}

type ResultRow struct {
	Kind           string  `json:"kind"`
	QuestionNumber int     `json:"question_number"`
	QuestionCode   string  `json:"question_code"`
	QuestionText   string  `json:"question_text"`
	AnswerValue    string  `json:"answer_value"`
	AnswerText     string  `json:"answer_text"`
	VoteCount      int     `json:"vote_count"`
	SortOrder      SortKey `json:"-"`
}
