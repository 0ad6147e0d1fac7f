package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple_choice"
	FreeText       QuestionKind = "free_text"
	Scale          QuestionKind = "scale"
	FinalMessage   QuestionKind = "final_message"
)

type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "Draft"
	QuizStatusPublished QuizStatus = "Published"
	QuizStatusArchived  QuizStatus = "Archived"
)

// QuizDefinition is the author-supplied description of a quiz. It is
// immutable once it has passed validation; the session engine only ever
// reads it.
type QuizDefinition struct {
	Metadata    QuizMetadata             `json:"metadata" validate:"required"`
	Scores      map[string]float64       `json:"scores" validate:"required"`
	Questions   []Question               `json:"questions" validate:"required,min=1,dive"`
	Transitions map[int][]TransitionRule `json:"transitions" validate:"required"`
}

type QuizMetadata struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Author      *string `json:"author,omitempty"`
	Version     *string `json:"version,omitempty"`
}

type Question struct {
	ID           int           `json:"id"`
	Kind         QuestionKind  `json:"kind" validate:"required,question_kind"`
	Prompt       Prompt        `json:"prompt"`
	ScoreUpdates []ScoreUpdate `json:"score_updates,omitempty"`
}

// Prompt carries what is shown to the quiz taker. Options are only
// meaningful for multiple_choice questions; Extra is passed through to
// clients untouched.
type Prompt struct {
	Text    string         `json:"text"`
	Options []string       `json:"options,omitempty"`
	Extra   datatypes.JSON `json:"extra,omitempty"`
}

// ScoreUpdate mutates session scores when its condition holds. All
// updates on a question whose conditions hold fire independently; this is
// not a first-match rule.
type ScoreUpdate struct {
	Condition   string            `json:"condition"`
	Assignments map[string]string `json:"assignments"`
}

// TransitionRule routes to the next question. A nil NextQuestionID ends
// the quiz. The first rule in a question's list whose condition holds
// wins.
type TransitionRule struct {
	Condition      string `json:"condition"`
	NextQuestionID *int   `json:"next_question_id"`
}

// EntryQuestionID returns the id of the quiz's entry point. Callers must
// only use this after validation has established a non-empty question
// list.
func (q *QuizDefinition) EntryQuestionID() int {
	return q.Questions[0].ID
}

// Quiz is the stored row for a validated quiz definition. The definition
// itself lives in a JSONB column; relational breakdown buys nothing since
// the engine always consumes the definition whole.
type Quiz struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Title      string         `json:"title" gorm:"not null;size:200;index"`
	Status     QuizStatus     `json:"status" gorm:"default:Draft;index"`
	Definition datatypes.JSON `json:"definition" gorm:"type:jsonb;not null"`
	Warnings   datatypes.JSON `json:"warnings,omitempty" gorm:"type:jsonb"`

	CreatedBy string         `json:"created_by" gorm:"size:100;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Version int `json:"version" gorm:"default:1"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
