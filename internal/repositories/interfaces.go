package repositories

import (
	"context"
	"errors"

	"github.com/quizforge/quiz-service/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned by every repository for a missing record.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError checks repository-level not-found conditions across
// implementations (gorm wraps its own sentinel).
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// Repository aggregates access to all stores.
type Repository interface {
	Quiz() QuizRepository
	Session() SessionRepository
	Ping(ctx context.Context) error
	Close() error
}

// QuizRepository stores validated quiz definitions.
type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)
}

// SessionRepository stores quiz sessions. Get returns ErrNotFound for an
// unknown id. Implementations must serialize concurrent writes for the
// same session id; the engine itself carries no locking.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Put(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
	ListByQuiz(ctx context.Context, quizID uint, filters SessionFilters) ([]*models.Session, int64, error)
}

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Status    *models.QuizStatus `json:"status"`
	CreatedBy *string            `json:"created_by"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type SessionFilters struct {
	CompletedOnly bool `json:"completed_only"`
	Limit         int  `json:"limit"`
	Offset        int  `json:"offset"`
}
