package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/quizforge/quiz-service/internal/cache"
	"github.com/quizforge/quiz-service/internal/engine"
	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/validator"
)

const quizCacheTTL = 10 * time.Minute

// QuizService manages the authoring lifecycle of quiz definitions.
type QuizService interface {
	Create(ctx context.Context, raw []byte, createdBy string) (*models.Quiz, *validator.Report, error)
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	GetDefinition(ctx context.Context, id uint) (*models.QuizDefinition, error)
	List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error)
	Update(ctx context.Context, id uint, raw []byte) (*models.Quiz, *validator.Report, error)
	Publish(ctx context.Context, id uint) (*models.Quiz, error)
	Delete(ctx context.Context, id uint) error
	Validate(ctx context.Context, raw []byte) (*validator.Report, error)
}

type quizService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewQuizService(repo repositories.Repository, cacheService cache.CacheService, publisher events.EventPublisher, v *validator.Validator, logger *slog.Logger) QuizService {
	return &quizService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		validator: v,
		logger:    logger,
		ops:       NewServiceLogger(logger, LogConfig{Service: "quiz-service", Component: "quiz"}),
	}
}

func quizCacheKey(id uint) string {
	return fmt.Sprintf("quiz:%d", id)
}

func (s *quizService) Create(ctx context.Context, raw []byte, createdBy string) (*models.Quiz, *validator.Report, error) {
	start := time.Now()
	quiz, report, err := s.create(ctx, raw, createdBy)
	s.ops.LogOperation(ctx, "create_quiz", createdBy, time.Since(start), err)
	return quiz, report, err
}

func (s *quizService) create(ctx context.Context, raw []byte, createdBy string) (*models.Quiz, *validator.Report, error) {
	definition, report, err := s.checkDefinition(raw)
	if err != nil {
		return nil, report, err
	}

	quiz := &models.Quiz{
		Title:      definition.Metadata.Title,
		Status:     models.QuizStatusDraft,
		Definition: datatypes.JSON(raw),
		CreatedBy:  createdBy,
	}
	if len(report.Warnings) > 0 {
		warnings, err := json.Marshal(report.Warnings)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode warnings: %w", err)
		}
		quiz.Warnings = datatypes.JSON(warnings)
	}

	if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
		return nil, nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created",
		"quiz_id", quiz.ID,
		"title", quiz.Title,
		"warnings", len(report.Warnings))

	return quiz, report, nil
}

func (s *quizService) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var cached models.Quiz
	if err := s.cache.Get(ctx, quizCacheKey(id), &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Quiz cache read failed", "quiz_id", id, "error", err)
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if err := s.cache.Set(ctx, quizCacheKey(id), quiz, quizCacheTTL); err != nil {
		s.logger.Warn("Quiz cache write failed", "quiz_id", id, "error", err)
	}

	return quiz, nil
}

func (s *quizService) GetDefinition(ctx context.Context, id uint) (*models.QuizDefinition, error) {
	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var definition models.QuizDefinition
	if err := json.Unmarshal(quiz.Definition, &definition); err != nil {
		return nil, fmt.Errorf("stored quiz %d is corrupt: %w", id, err)
	}
	return &definition, nil
}

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	quizzes, total, err := s.repo.Quiz().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, total, nil
}

func (s *quizService) Update(ctx context.Context, id uint, raw []byte) (*models.Quiz, *validator.Report, error) {
	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if quiz.Status == models.QuizStatusArchived {
		return nil, nil, NewBusinessRuleError("archived_quiz_immutable",
			"an archived quiz cannot be edited", ErrQuizNotEditable,
			map[string]interface{}{"quiz_id": id})
	}

	definition, report, err := s.checkDefinition(raw)
	if err != nil {
		return nil, report, err
	}

	quiz.Title = definition.Metadata.Title
	quiz.Definition = datatypes.JSON(raw)
	quiz.Warnings = nil
	if len(report.Warnings) > 0 {
		warnings, err := json.Marshal(report.Warnings)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode warnings: %w", err)
		}
		quiz.Warnings = datatypes.JSON(warnings)
	}
	quiz.Version++

	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, nil, fmt.Errorf("failed to update quiz: %w", err)
	}
	s.invalidate(ctx, id)

	return quiz, report, nil
}

func (s *quizService) Publish(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.QuizStatusPublished {
		return quiz, nil
	}
	if quiz.Status == models.QuizStatusArchived {
		return nil, NewBusinessRuleError("archived_quiz_unpublishable",
			"an archived quiz cannot be published", ErrQuizNotEditable,
			map[string]interface{}{"quiz_id": id})
	}

	// Publishing re-runs validation so a quiz stored before a validator
	// tightening cannot go live with stale guarantees.
	if _, _, err := s.checkDefinition(quiz.Definition); err != nil {
		return nil, err
	}

	quiz.Status = models.QuizStatusPublished
	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to publish quiz: %w", err)
	}
	s.invalidate(ctx, id)

	event := events.NewEvent(events.EventQuizPublished, events.QuizPublishedEvent{
		QuizID:    quiz.ID,
		QuizTitle: quiz.Title,
		CreatedBy: quiz.CreatedBy,
	})
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish quiz.published event", "quiz_id", quiz.ID, "error", err)
	}

	return quiz, nil
}

func (s *quizService) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Quiz().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	s.invalidate(ctx, id)

	event := events.NewEvent(events.EventQuizDeleted, events.QuizDeletedEvent{QuizID: id})
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish quiz.deleted event", "quiz_id", id, "error", err)
	}

	return nil
}

func (s *quizService) Validate(ctx context.Context, raw []byte) (*validator.Report, error) {
	_, report, err := s.validator.Quiz().ValidateRaw(raw)
	if err != nil {
		return nil, ErrQuizMalformed
	}
	return report, nil
}

// checkDefinition runs structural and semantic validation and proves the
// definition is loadable by the engine before anything is persisted.
func (s *quizService) checkDefinition(raw []byte) (*models.QuizDefinition, *validator.Report, error) {
	definition, report, err := s.validator.Quiz().ValidateRaw(raw)
	if err != nil {
		return nil, nil, ErrQuizMalformed
	}
	if !report.Valid() {
		return nil, report, &QuizRejectedError{Errors: report.Errors, Warnings: report.Warnings}
	}
	if _, err := engine.New(definition); err != nil {
		return nil, report, fmt.Errorf("definition rejected by engine: %w", err)
	}
	return definition, report, nil
}

func (s *quizService) invalidate(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, quizCacheKey(id)); err != nil {
		s.logger.Warn("Quiz cache invalidation failed", "quiz_id", id, "error", err)
	}
}
