package questionnaire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/questionnaire/model"
)

func TestEncode(t *testing.T) {
	questions := sampleQuestions(t)

	keys := func(fields []Field) []string {
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = f.Key
		}
		return out
	}

	t.Run("text", func(t *testing.T) {
		fields := Encode(questions[0])
		assert.Equal(t, []string{"q_1"}, keys(fields))
		assert.Empty(t, fields[0].Options)
	})

	t.Run("radio", func(t *testing.T) {
		fields := Encode(questions[1])
		require.Len(t, fields, 1)
		assert.Equal(t, "q_2", fields[0].Key)
		assert.Equal(t, []Option{
			{Value: "su", Label: "Summer"},
			{Value: "wi", Label: "Winter"},
			{Value: "au", Label: "Autumn"},
		}, fields[0].Options)
	})

	t.Run("checkbox", func(t *testing.T) {
		fields := Encode(questions[2])
		assert.Equal(t, []string{"q_3_go", "q_3_py", "q_3_text"}, keys(fields))
		assert.Equal(t, "Python", fields[1].Label)
		assert.Equal(t, "py", fields[1].Value)
		assert.True(t, fields[2].Other)
	})

	t.Run("tree", func(t *testing.T) {
		fields := Encode(questions[3])
		require.Len(t, fields, 1)
		assert.Equal(t, []Option{
			{Value: "eu", Label: "Europe"},
			{Value: "gr", Label: "Greece", Depth: 1},
			{Value: "it", Label: "Italy", Depth: 1},
			{Value: "na", Label: "North America"},
			{Value: "us", Label: "USA", Depth: 1},
		}, fields[0].Options)
	})

	t.Run("checktree", func(t *testing.T) {
		fields := Encode(questions[4])
		assert.Equal(t, []string{"q_5_eu", "q_5_gr", "q_5_it"}, keys(fields))
		assert.Equal(t, 1, fields[1].Options[0].Depth)
	})

	t.Run("scale-matrix", func(t *testing.T) {
		fields := Encode(questions[5])
		assert.Equal(t, []string{"q_6_1", "q_6_2"}, keys(fields))
		assert.Equal(t, "Price", fields[1].Line)
		assert.Equal(t, []Option{
			{Value: "1", Label: "Bad"},
			{Value: "2", Label: "OK"},
			{Value: "3", Label: "Good"},
		}, fields[1].Options)
	})
}

func TestDecode(t *testing.T) {
	questions := sampleQuestions(t)

	tests := []struct {
		name  string
		code  string
		value string
		votes int
		want  model.ResultRow
	}{
		{
			name: "text", code: "q_1", value: "gopher", votes: 1,
			want: model.ResultRow{
				Kind: KindText, QuestionNumber: 1, QuestionCode: "q_1", QuestionText: "Your nickname",
				AnswerValue: "gopher", AnswerText: NullAnswer, VoteCount: 1,
				SortOrder: model.SortKey{Question: 0},
			},
		},
		{
			name: "radio choice", code: "q_2", value: "wi", votes: 3,
			want: model.ResultRow{
				Kind: KindRadio, QuestionNumber: 2, QuestionCode: "q_2", QuestionText: "Favourite season",
				AnswerValue: "wi", AnswerText: "Winter", VoteCount: 3,
				SortOrder: model.SortKey{Question: 1},
			},
		},
		{
			name: "radio other", code: "q_2", value: "spring", votes: 1,
			want: model.ResultRow{
				Kind: KindRadio, QuestionNumber: 2, QuestionCode: "q_2", QuestionText: "Favourite season",
				AnswerValue: OtherValue, AnswerText: "spring", VoteCount: 1,
				SortOrder: model.SortKey{Question: 1},
			},
		},
		{
			name: "checkbox takes choice from key", code: "q_3_py", value: "on", votes: 2,
			want: model.ResultRow{
				Kind: KindCheckbox, QuestionNumber: 3, QuestionCode: "q_3_py", QuestionText: "Languages",
				AnswerValue: "py", AnswerText: "Python", VoteCount: 2,
				SortOrder: model.SortKey{Question: 2, Parts: []string{"py"}},
			},
		},
		{
			name: "checkbox freeform", code: "q_3_text", value: "Rust", votes: 1,
			want: model.ResultRow{
				Kind: KindCheckbox, QuestionNumber: 3, QuestionCode: "q_3_text", QuestionText: "Languages",
				AnswerValue: OtherValue, AnswerText: "Rust", VoteCount: 1,
				SortOrder: model.SortKey{Question: 2, Parts: []string{"text"}},
			},
		},
		{
			name: "tree nested", code: "q_4", value: "it", votes: 5,
			want: model.ResultRow{
				Kind: KindTree, QuestionNumber: 4, QuestionCode: "q_4", QuestionText: "Where do you live",
				AnswerValue: "it", AnswerText: "Italy", VoteCount: 5,
				SortOrder: model.SortKey{Question: 3},
			},
		},
		{
			name: "tree unknown", code: "q_4", value: "zz", votes: 1,
			want: model.ResultRow{
				Kind: KindTree, QuestionNumber: 4, QuestionCode: "q_4", QuestionText: "Where do you live",
				AnswerValue: "zz", AnswerText: "", VoteCount: 1,
				SortOrder: model.SortKey{Question: 3},
			},
		},
		{
			name: "checktree", code: "q_5_gr", value: "gr", votes: 1,
			want: model.ResultRow{
				Kind: KindCheckTree, QuestionNumber: 5, QuestionCode: "q_5_gr", QuestionText: "Visited",
				AnswerValue: "gr", AnswerText: "Greece", VoteCount: 1,
				SortOrder: model.SortKey{Question: 4, Parts: []string{"gr"}},
			},
		},
		{
			name: "scale-matrix", code: "q_6_2", value: "3", votes: 4,
			want: model.ResultRow{
				Kind: KindScaleMatrix, QuestionNumber: 6, QuestionCode: "q_6_2", QuestionText: "Rate: Price",
				AnswerValue: "3", AnswerText: "Good", VoteCount: 4,
				SortOrder: model.SortKey{Question: 5, Parts: []string{"2"}},
			},
		},
		{
			name: "scale-matrix sentinel", code: "q_6_1", value: "maybe", votes: 1,
			want: model.ResultRow{
				Kind: KindScaleMatrix, QuestionNumber: 6, QuestionCode: "q_6_1", QuestionText: "Rate: Speed",
				AnswerValue: "maybe", AnswerText: NullAnswer + "†maybe", VoteCount: 1,
				SortOrder: model.SortKey{Question: 5, Parts: []string{"1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(questions, tt.code, tt.value, tt.votes)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode(%q, %q) mismatch (-want +got):\n%s", tt.code, tt.value, diff)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	questions := sampleQuestions(t)

	tests := []struct {
		name  string
		code  string
		value string
	}{
		{"question out of range", "q_7", "x"},
		{"question zero", "q_0", "x"},
		{"wrong prefix", "x_1", "x"},
		{"no number", "q_abc", "x"},
		{"bare prefix", "q", "x"},
		{"checktree without choice", "q_5", "gr"},
		{"matrix line out of range", "q_6_9", "1"},
		{"matrix line not a number", "q_6_a", "1"},
		{"matrix scale out of range", "q_6_1", "7"},
		{"matrix scale not a number", "q_6_1", "great"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(questions, tt.code, tt.value, 1)
			var derr *DecodeError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.code, derr.Code)
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	questions := sampleQuestions(t)

	for _, q := range questions {
		for _, f := range Encode(q) {
			var value, want string
			switch {
			case f.Other:
				value, want = "something else", "something else"
			case f.Value != "":
				value, want = f.Value, f.Label
			case len(f.Options) > 0:
				last := f.Options[len(f.Options)-1]
				value, want = last.Value, last.Label
			default:
				value, want = "free text", NullAnswer
			}

			row, err := Decode(questions, f.Key, value, 1)
			require.NoError(t, err, f.Key)
			assert.Equal(t, want, row.AnswerText, f.Key)
			assert.Equal(t, q.ID, row.QuestionNumber, f.Key)
		}
	}
}

func TestSplitFieldKey_SuffixMayContainUnderscores(t *testing.T) {
	number, suffix, err := SplitFieldKey("q_12_north_america")
	require.NoError(t, err)
	assert.Equal(t, 12, number)
	assert.Equal(t, "north_america", suffix)
}

func TestFindChoice_FirstMatchWins(t *testing.T) {
	choices := []Choice{
		{Key: "a", Title: "A", Choices: []Choice{{Key: "x", Title: "x under A"}}},
		{Key: "b", Title: "B", Choices: []Choice{{Key: "x", Title: "x under B"}}},
	}
	assert.Equal(t, "x under A", FindChoice(choices, "x"))

	shallow := append(choices, Choice{Key: "x", Title: "top level x"})
	assert.Equal(t, "top level x", FindChoice(shallow, "x"))

	assert.Equal(t, "", FindChoice(choices, "missing"))
	assert.Equal(t, "", FindChoice(nil, "x"))
}
