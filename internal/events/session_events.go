package events

import (
	"time"
)

// EventType represents different types of session lifecycle events
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionCompleted EventType = "session.completed"

	EventQuizPublished EventType = "quiz.published"
	EventQuizDeleted   EventType = "quiz.deleted"
)

// SessionEvent is the base event structure published for downstream
// consumers (analytics, notifications).
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	QuizID    uint      `json:"quiz_id"`
	QuizTitle string    `json:"quiz_title"`
	StartedAt time.Time `json:"started_at"`
}

type SessionCompletedEvent struct {
	SessionID   string             `json:"session_id"`
	QuizID      uint               `json:"quiz_id"`
	QuizTitle   string             `json:"quiz_title"`
	Scores      map[string]float64 `json:"scores"`
	AnswerCount int                `json:"answer_count"`
	CompletedAt time.Time          `json:"completed_at"`
}

type QuizPublishedEvent struct {
	QuizID    uint   `json:"quiz_id"`
	QuizTitle string `json:"quiz_title"`
	CreatedBy string `json:"created_by"`
}

type QuizDeletedEvent struct {
	QuizID uint `json:"quiz_id"`
}
