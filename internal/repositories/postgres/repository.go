package postgres

import (
	"context"

	"github.com/quizforge/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type postgresRepository struct {
	db       *gorm.DB
	quizzes  repositories.QuizRepository
	sessions repositories.SessionRepository
}

// NewRepository bundles the Postgres-backed stores behind the Repository
// interface.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &postgresRepository{
		db:       db,
		quizzes:  NewQuizPostgreSQL(db),
		sessions: NewSessionPostgreSQL(db),
	}
}

func (r *postgresRepository) Quiz() repositories.QuizRepository {
	return r.quizzes
}

func (r *postgresRepository) Session() repositories.SessionRepository {
	return r.sessions
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *postgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
