package postgres

import (
	"context"
	"errors"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (r SessionPostgreSQL) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Put upserts the session row whole. Callers serialize writes per
// session id, so last-write-wins at this level is safe.
func (r SessionPostgreSQL) Put(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(session).Error
}

func (r SessionPostgreSQL) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error
}

func (r SessionPostgreSQL) ListByQuiz(ctx context.Context, quizID uint, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	var sessions []*models.Session
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Session{}).Where("quiz_id = ?", quizID)
	if filters.CompletedOnly {
		query = query.Where("current_question_id IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at asc")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}
