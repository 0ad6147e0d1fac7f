package models

import (
	"time"
)

// AnswerValue is a decoded answer as submitted by the quiz taker: a
// float64, bool, or string.
type AnswerValue any

// AnswerRecord is one entry of a session's append-only answer history.
type AnswerRecord struct {
	QuestionID int         `json:"question_id"`
	Answer     AnswerValue `json:"answer"`
}

// Session is the per-taker progress record for one quiz. The session
// engine exclusively owns its mutation; stores round-trip it as a value.
// A nil CurrentQuestionID means the session is complete.
type Session struct {
	ID                string             `json:"id" gorm:"primaryKey;size:100"`
	QuizID            uint               `json:"quiz_id" gorm:"not null;index"`
	CurrentQuestionID *int               `json:"current_question_id"`
	Scores            map[string]float64 `json:"scores" gorm:"serializer:json;type:jsonb"`
	AnswerHistory     []AnswerRecord     `json:"answer_history" gorm:"serializer:json;type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string {
	return "quiz_sessions"
}

// Completed reports whether the session has reached its terminal state.
func (s *Session) Completed() bool {
	return s.CurrentQuestionID == nil
}

// QuestionView is what the quiz-taking API shows for the question a
// session is currently on. Score internals are never exposed here.
type QuestionView struct {
	SessionID  string       `json:"session_id"`
	QuestionID int          `json:"question_id"`
	Kind       QuestionKind `json:"kind"`
	Prompt     Prompt       `json:"prompt"`
}

// FinalResult is returned once a session completes.
type FinalResult struct {
	SessionID     string             `json:"session_id"`
	Scores        map[string]float64 `json:"scores"`
	AnswerHistory []AnswerRecord     `json:"answer_history"`
}
