package validator

import (
	"strings"
	"testing"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuiz() *models.QuizDefinition {
	return &models.QuizDefinition{
		Metadata: models.QuizMetadata{Title: "Personality check"},
		Scores:   map[string]float64{"correct": 0, "bonus": 0},
		Questions: []models.Question{
			{
				ID:     1,
				Kind:   models.MultipleChoice,
				Prompt: models.Prompt{Text: "Pick one", Options: []string{"a", "b"}},
				ScoreUpdates: []models.ScoreUpdate{
					{Condition: "answer == 1", Assignments: map[string]string{"correct": "correct + 1"}},
				},
			},
			{
				ID:     2,
				Kind:   models.FinalMessage,
				Prompt: models.Prompt{Text: "Done"},
			},
		},
		Transitions: map[int][]models.TransitionRule{
			1: {
				{Condition: "correct > 0", NextQuestionID: models.IntPtr(2)},
				{Condition: "true", NextQuestionID: nil},
			},
		},
	}
}

func TestQuizValidator_ValidQuiz(t *testing.T) {
	report := NewQuizValidator().Validate(validQuiz())

	assert.True(t, report.Valid())
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestQuizValidator_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.QuizDefinition)
		wantErr string
	}{
		{
			name:    "no questions",
			mutate:  func(q *models.QuizDefinition) { q.Questions = nil },
			wantErr: "at least one question",
		},
		{
			name: "duplicate question id",
			mutate: func(q *models.QuizDefinition) {
				q.Questions = append(q.Questions, models.Question{ID: 1, Kind: models.FreeText, Prompt: models.Prompt{Text: "again"}})
			},
			wantErr: "duplicate question id",
		},
		{
			name: "multiple choice without options",
			mutate: func(q *models.QuizDefinition) {
				q.Questions[0].Prompt.Options = nil
			},
			wantErr: "at least one option",
		},
		{
			name: "missing question kind",
			mutate: func(q *models.QuizDefinition) {
				q.Questions[1].Kind = ""
			},
			wantErr: "missing question kind",
		},
		{
			name: "unknown question kind",
			mutate: func(q *models.QuizDefinition) {
				q.Questions[1].Kind = "essay"
			},
			wantErr: "unknown question kind",
		},
		{
			name: "assignment to undeclared score",
			mutate: func(q *models.QuizDefinition) {
				q.Questions[0].ScoreUpdates[0].Assignments["mystery"] = "1"
			},
			wantErr: "undeclared score",
		},
		{
			name: "condition references unknown variable",
			mutate: func(q *models.QuizDefinition) {
				q.Questions[0].ScoreUpdates[0].Condition = "streak > 2"
			},
			wantErr: "unauthorized variable",
		},
		{
			name: "transition routes to missing question",
			mutate: func(q *models.QuizDefinition) {
				q.Transitions[1][0].NextQuestionID = models.IntPtr(99)
			},
			wantErr: "unknown question id 99",
		},
		{
			name: "transition condition bad syntax",
			mutate: func(q *models.QuizDefinition) {
				q.Transitions[1][0].Condition = "correct >"
			},
			wantErr: "condition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiz := validQuiz()
			tt.mutate(quiz)

			report := NewQuizValidator().Validate(quiz)

			assert.False(t, report.Valid())
			found := false
			for _, msg := range report.Errors {
				if strings.Contains(msg, tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "expected an error containing %q, got %v", tt.wantErr, report.Errors)
		})
	}
}

// Every invalid expression is reported; one bad expression never masks
// the rest of the quiz.
func TestQuizValidator_AccumulatesAllErrors(t *testing.T) {
	quiz := validQuiz()
	quiz.Questions[0].ScoreUpdates[0].Condition = "ghost == 1"
	quiz.Questions[0].ScoreUpdates[0].Assignments["correct"] = "correct +"
	quiz.Transitions[1][0].Condition = "phantom > 0"
	quiz.Transitions[1][0].NextQuestionID = models.IntPtr(42)

	report := NewQuizValidator().Validate(quiz)

	require.False(t, report.Valid())
	assert.Len(t, report.Errors, 4)
}

func TestQuizValidator_Warnings(t *testing.T) {
	t.Run("no true fallback", func(t *testing.T) {
		quiz := validQuiz()
		quiz.Transitions[1] = []models.TransitionRule{
			{Condition: "correct > 0", NextQuestionID: models.IntPtr(2)},
		}

		report := NewQuizValidator().Validate(quiz)

		assert.True(t, report.Valid(), "warnings must not block saving")
		require.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "dead-end")
	})

	t.Run("rule after unconditional rule", func(t *testing.T) {
		quiz := validQuiz()
		quiz.Transitions[1] = []models.TransitionRule{
			{Condition: "true", NextQuestionID: models.IntPtr(2)},
			{Condition: "correct > 0", NextQuestionID: nil},
		}

		report := NewQuizValidator().Validate(quiz)

		assert.True(t, report.Valid())
		require.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "unreachable")
	})

	t.Run("transitions for unknown question", func(t *testing.T) {
		quiz := validQuiz()
		quiz.Transitions[7] = []models.TransitionRule{
			{Condition: "true", NextQuestionID: nil},
		}

		report := NewQuizValidator().Validate(quiz)

		assert.True(t, report.Valid())
		require.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "does not exist")
	})
}

func TestQuizValidator_ValidateRaw(t *testing.T) {
	t.Run("malformed root", func(t *testing.T) {
		_, _, err := NewQuizValidator().ValidateRaw([]byte(`[1, 2, 3]`))
		assert.ErrorIs(t, err, ErrMalformedQuiz)

		_, _, err = NewQuizValidator().ValidateRaw([]byte(`not json`))
		assert.ErrorIs(t, err, ErrMalformedQuiz)
	})

	t.Run("missing sections reported together", func(t *testing.T) {
		_, report, err := NewQuizValidator().ValidateRaw([]byte(`{}`))
		require.NoError(t, err)
		assert.Len(t, report.Errors, 4)
	})

	t.Run("missing title reported", func(t *testing.T) {
		raw := []byte(`{
			"metadata": {"author": "nobody"},
			"scores": {"correct": 0},
			"questions": [
				{"id": 1, "kind": "free_text", "prompt": {"text": "Say hi"}}
			],
			"transitions": {"1": [{"condition": "true", "next_question_id": null}]}
		}`)

		_, report, err := NewQuizValidator().ValidateRaw(raw)
		require.NoError(t, err)
		require.False(t, report.Valid())
		assert.Contains(t, report.Errors[0], "title")
	})

	t.Run("metadata error does not hide content findings", func(t *testing.T) {
		raw := []byte(`{
			"metadata": {"author": "nobody"},
			"scores": {"correct": 0},
			"questions": [
				{"id": 1, "kind": "free_text", "prompt": {"text": "Say hi"},
				 "score_updates": [{"condition": "ghost == 1", "assignments": {"correct": "correct + 1"}}]}
			],
			"transitions": {"1": [{"condition": "true", "next_question_id": 7}]}
		}`)

		_, report, err := NewQuizValidator().ValidateRaw(raw)
		require.NoError(t, err)
		require.False(t, report.Valid())

		joined := strings.Join(report.Errors, "\n")
		assert.Contains(t, joined, "title")
		assert.Contains(t, joined, "ghost")
		assert.Contains(t, joined, "unknown question id 7")
	})

	t.Run("broken section suppresses only its own checks", func(t *testing.T) {
		raw := []byte(`{
			"metadata": {"title": "t"},
			"scores": "not a map",
			"questions": [
				{"id": 1, "kind": "free_text", "prompt": {"text": "Say hi"},
				 "score_updates": [{"condition": "answer ==", "assignments": {}}]}
			],
			"transitions": {}
		}`)

		_, report, err := NewQuizValidator().ValidateRaw(raw)
		require.NoError(t, err)
		require.False(t, report.Valid())

		joined := strings.Join(report.Errors, "\n")
		assert.Contains(t, joined, "scores")
		// Grammar is still probed; the unknown closure is not guessed at.
		assert.Contains(t, joined, "syntax error")
		assert.NotContains(t, joined, "unauthorized variable")
	})

	t.Run("scores must be numeric", func(t *testing.T) {
		raw := []byte(`{
			"metadata": {"title": "t"},
			"scores": {"correct": "zero"},
			"questions": [],
			"transitions": {}
		}`)

		_, report, err := NewQuizValidator().ValidateRaw(raw)
		require.NoError(t, err)
		require.False(t, report.Valid())
		assert.Contains(t, report.Errors[0], "scores")
	})

	t.Run("valid payload", func(t *testing.T) {
		raw := []byte(`{
			"metadata": {"title": "Counting"},
			"scores": {"correct": 0},
			"questions": [
				{"id": 1, "kind": "multiple_choice", "prompt": {"text": "Pick", "options": ["0", "1"]},
				 "score_updates": [{"condition": "answer == 1", "assignments": {"correct": "correct + 1"}}]}
			],
			"transitions": {"1": [{"condition": "true", "next_question_id": null}]}
		}`)

		quiz, report, err := NewQuizValidator().ValidateRaw(raw)
		require.NoError(t, err)
		assert.True(t, report.Valid(), "unexpected errors: %v", report.Errors)
		require.Len(t, quiz.Questions, 1)
		assert.Equal(t, map[string]float64{"correct": 0}, quiz.Scores)
		require.Len(t, quiz.Transitions[1], 1)
	})
}
