package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("title", "is required", "")

	assert.Equal(t, "title", err.Field)
	assert.Equal(t, "is required", err.Message)
	assert.Equal(t, "validation error on field 'title': is required", err.Error())
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("title", "is required", nil))
	assert.Equal(t, "validation failed: title is required", errs.Error())

	errs = append(errs, *NewValidationError("status", "must be a valid quiz status (Draft, Published, Archived)", nil))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("kind", "must be a valid question kind (multiple_choice, free_text, scale, final_message)", "question_kind", "essay")

	assert.Equal(t, "question_kind", err.Rule)
	assert.Equal(t, "kind", err.Field)
	assert.Equal(t, "essay", err.Value)
}

// quizFields mirrors the tags the quiz API binds with, including the
// custom question_kind and quiz_status rules.
type quizFields struct {
	Title  string `validate:"required,min=1,max=200"`
	Status string `validate:"omitempty,quiz_status"`
	Kind   string `validate:"omitempty,question_kind"`
}

func newFieldValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, v.RegisterValidation("question_kind", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "multiple_choice", "free_text", "scale", "final_message":
			return true
		}
		return false
	}))
	require.NoError(t, v.RegisterValidation("quiz_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "Draft", "Published", "Archived":
			return true
		}
		return false
	}))
	return v
}

func TestToValidationErrors(t *testing.T) {
	v := newFieldValidator(t)

	tests := []struct {
		name        string
		input       quizFields
		wantField   string
		wantRule    string
		wantMessage string
	}{
		{
			name:        "missing title",
			input:       quizFields{},
			wantField:   "Title",
			wantRule:    "required",
			wantMessage: "is required",
		},
		{
			name:        "unknown question kind",
			input:       quizFields{Title: "t", Kind: "essay"},
			wantField:   "Kind",
			wantRule:    "question_kind",
			wantMessage: "must be a valid question kind (multiple_choice, free_text, scale, final_message)",
		},
		{
			name:        "unknown quiz status",
			input:       quizFields{Title: "t", Status: "Retired"},
			wantField:   "Status",
			wantRule:    "quiz_status",
			wantMessage: "must be a valid quiz status (Draft, Published, Archived)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.input)
			require.Error(t, err)

			errs := ToValidationErrors(err)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantField, errs[0].Field)
			assert.Equal(t, tt.wantRule, errs[0].Rule)
			assert.Equal(t, tt.wantMessage, errs[0].Message)
		})
	}
}

func TestToValidationErrors_NonValidatorError(t *testing.T) {
	errs := ToValidationErrors(assert.AnError)
	assert.Empty(t, errs)
}
