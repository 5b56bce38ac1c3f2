package questionnaire

import (
	"strconv"
	"strings"

	"github.com/mbolis/questionnaire/model"
)

const (
	// FieldPrefix starts every answer field key: q_<N> or q_<N>_<suffix>.
	FieldPrefix = "q_"
	// OtherSuffix marks the freeform field of a checkbox group.
	OtherSuffix = "text"
	// OtherValue replaces an answer value that is not a declared choice.
	OtherValue = "Other"
	// NullAnswer is the answer text of rows that need no expansion.
	NullAnswer = "\x00"
)

// scale-matrix answers that are not choice indexes
var sentinels = map[string]bool{"yes": true, "no": true, "maybe": true}

type Option struct {
	Value string
	Label string
	Depth int
}

// Field is one form input of a numbered question.
type Field struct {
	Key string
	// Label is the choice label of a single tick box.
	Label string
	// Value is submitted when a tick box is checked.
	Value string
	// Line is the matrix line the field answers.
	Line    string
	Options []Option
	Other   bool
}

func FieldKey(number int, suffix string) string {
	key := FieldPrefix + strconv.Itoa(number)
	if suffix != "" {
		key += "_" + suffix
	}
	return key
}

// Encode lists the fields a numbered question is submitted as.
func Encode(q Definition) []Field {
	switch q.Kind {
	case KindRadio:
		return []Field{{Key: FieldKey(q.ID, ""), Options: options(q.Choices, 0, false)}}

	case KindCheckbox:
		fields := make([]Field, 0, len(q.Choices)+1)
		for _, c := range q.Choices {
			fields = append(fields, Field{Key: FieldKey(q.ID, c.Key), Label: c.Title, Value: c.Key})
		}
		return append(fields, Field{Key: FieldKey(q.ID, OtherSuffix), Other: true})

	case KindTree:
		return []Field{{Key: FieldKey(q.ID, ""), Options: options(q.Choices, 0, true)}}

	case KindCheckTree:
		var fields []Field
		for _, o := range options(q.Choices, 0, true) {
			fields = append(fields, Field{Key: FieldKey(q.ID, o.Value), Label: o.Label, Value: o.Value, Options: []Option{o}})
		}
		return fields

	case KindScaleMatrix:
		scale := make([]Option, len(q.Choices))
		for i, c := range q.Choices {
			scale[i] = Option{Value: strconv.Itoa(i + 1), Label: c.Title}
		}
		fields := make([]Field, len(q.Lines))
		for i, line := range q.Lines {
			fields[i] = Field{Key: FieldKey(q.ID, strconv.Itoa(i+1)), Line: line, Options: scale}
		}
		return fields
	}

	return []Field{{Key: FieldKey(q.ID, "")}}
}

func options(choices []Choice, depth int, nested bool) []Option {
	var opts []Option
	for _, c := range choices {
		opts = append(opts, Option{Value: c.Key, Label: c.Title, Depth: depth})
		if nested && c.Choices != nil {
			opts = append(opts, options(c.Choices, depth+1, true)...)
		}
	}
	return opts
}

// FindChoice searches a choice tree for key and returns its title, or "" when
// absent. Keys at one level are checked before descending; descent is depth
// first in declaration order and the first match wins.
func FindChoice(choices []Choice, key string) string {
	for _, c := range choices {
		if c.Key == key {
			return c.Title
		}
	}
	for _, c := range choices {
		if c.Choices == nil {
			continue
		}
		if title := FindChoice(c.Choices, key); title != "" {
			return title
		}
	}
	return ""
}

// SplitFieldKey returns the question number and the (possibly empty) suffix of a field key.
func SplitFieldKey(code string) (int, string, error) {
	parts := strings.SplitN(code, "_", 3)
	if len(parts) < 2 || parts[0]+"_" != FieldPrefix {
		return 0, "", &DecodeError{Code: code, Reason: "not a field key"}
	}
	number, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", &DecodeError{Code: code, Reason: "question number is not an integer"}
	}
	if len(parts) == 3 {
		return number, parts[2], nil
	}
	return number, "", nil
}

// Decode expands one aggregated (code, value) group against the numbered
// questions into a human readable result row.
func Decode(questions []Definition, code, value string, votes int) (model.ResultRow, error) {
	number, suffix, err := SplitFieldKey(code)
	if err != nil {
		return model.ResultRow{}, err
	}
	index := number - 1
	if index < 0 || index >= len(questions) {
		return model.ResultRow{}, &DecodeError{Code: code, Reason: "question " + strconv.Itoa(number) + " out of range"}
	}

	q := questions[index]
	row := model.ResultRow{
		Kind:           q.Kind,
		QuestionNumber: number,
		QuestionCode:   code,
		QuestionText:   q.Title,
		AnswerValue:    value,
		AnswerText:     NullAnswer,
		VoteCount:      votes,
		SortOrder:      model.SortKey{Question: index},
	}
	if suffix != "" {
		row.SortOrder.Parts = []string{suffix}
	}

	if q.Choices == nil {
		return row, nil
	}

	// a checked box carries its choice in the key
	if q.Kind == KindCheckbox && suffix != "" && suffix != OtherSuffix {
		row.AnswerValue = suffix
	}

	switch q.Kind {
	case KindTree:
		row.AnswerText = FindChoice(q.Choices, row.AnswerValue)

	case KindCheckTree:
		if suffix == "" {
			return model.ResultRow{}, &DecodeError{Code: code, Reason: "checktree key without choice"}
		}
		row.AnswerText = FindChoice(q.Choices, suffix)

	case KindRadio, KindCheckbox:
		if c, ok := q.Choice(row.AnswerValue); ok {
			row.AnswerText = c.Title
		} else {
			row.AnswerText = row.AnswerValue
			row.AnswerValue = OtherValue
		}

	case KindScaleMatrix:
		line, err := strconv.Atoi(suffix)
		if err != nil || line < 1 || line > len(q.Lines) {
			return model.ResultRow{}, &DecodeError{Code: code, Reason: "no matrix line " + strconv.Quote(suffix)}
		}
		if sub := q.Lines[line-1]; sub != "" {
			row.QuestionText += ": " + sub
		}

		if sentinels[value] {
			row.AnswerText += "†" + value
			break
		}
		i, err := strconv.Atoi(value)
		if err != nil || i < 1 || i > len(q.Choices) {
			return model.ResultRow{}, &DecodeError{Code: code, Reason: "no scale choice " + strconv.Quote(value)}
		}
		row.AnswerText = q.Choices[i-1].Title
	}

	return row, nil
}
