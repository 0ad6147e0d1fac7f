package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quizforge/quiz-service/internal/engine"
	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
)

// SessionService runs quiz sessions end to end.
type SessionService interface {
	Start(ctx context.Context, quizID uint, sessionID string) (*models.QuestionView, error)
	Current(ctx context.Context, sessionID string) (*models.QuestionView, error)
	Answer(ctx context.Context, sessionID string, answer models.AnswerValue) (*engine.StepResult, error)
	Results(ctx context.Context, sessionID string) (*models.FinalResult, error)
	ListByQuiz(ctx context.Context, quizID uint, filters repositories.SessionFilters) ([]*models.Session, int64, error)
}

type sessionService struct {
	repo      repositories.Repository
	quizzes   QuizService
	publisher events.EventPublisher
	logger    *slog.Logger
	ops       *ServiceLogger
	locks     *keyedMutex
}

func NewSessionService(repo repositories.Repository, quizzes QuizService, publisher events.EventPublisher, logger *slog.Logger) SessionService {
	return &sessionService{
		repo:      repo,
		quizzes:   quizzes,
		publisher: publisher,
		logger:    logger,
		ops:       NewServiceLogger(logger, LogConfig{Service: "quiz-service", Component: "session"}),
		locks:     newKeyedMutex(),
	}
}

// keyedMutex serializes operations per session id. Interleaved answers for
// one session must observe each other's writes; distinct sessions never
// contend.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sessionLock)}
}

func (k *keyedMutex) lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sessionLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedMutex) unlock(key string) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}

func (s *sessionService) Start(ctx context.Context, quizID uint, sessionID string) (*models.QuestionView, error) {
	start := time.Now()
	view, err := s.start(ctx, quizID, sessionID)
	s.ops.LogOperation(ctx, "start_session", sessionID, time.Since(start), err)
	return view, err
}

func (s *sessionService) start(ctx context.Context, quizID uint, sessionID string) (*models.QuestionView, error) {
	s.locks.lock(sessionID)
	defer s.locks.unlock(sessionID)

	if _, err := s.repo.Session().Get(ctx, sessionID); err == nil {
		return nil, ErrDuplicateSession
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}

	quiz, eng, err := s.loadEngine(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != models.QuizStatusPublished {
		return nil, NewBusinessRuleError("published_quizzes_only",
			"sessions may only start on a published quiz", ErrQuizNotPublished,
			map[string]interface{}{"quiz_id": quizID, "status": quiz.Status})
	}

	session := eng.NewSession(sessionID, quizID)
	if err := s.repo.Session().Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("Session started", "session_id", sessionID, "quiz_id", quizID)

	event := events.NewEvent(events.EventSessionStarted, events.SessionStartedEvent{
		SessionID: sessionID,
		QuizID:    quizID,
		QuizTitle: quiz.Title,
		StartedAt: time.Now().UTC(),
	})
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish session.started event", "session_id", sessionID, "error", err)
	}

	return eng.CurrentQuestion(session)
}

func (s *sessionService) Current(ctx context.Context, sessionID string) (*models.QuestionView, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, eng, err := s.loadEngine(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	view, err := eng.CurrentQuestion(session)
	if err != nil {
		return nil, s.mapEngineError(err)
	}
	return view, nil
}

func (s *sessionService) Answer(ctx context.Context, sessionID string, answer models.AnswerValue) (*engine.StepResult, error) {
	start := time.Now()
	result, err := s.answer(ctx, sessionID, answer)
	s.ops.LogOperation(ctx, "answer", sessionID, time.Since(start), err)
	return result, err
}

func (s *sessionService) answer(ctx context.Context, sessionID string, answer models.AnswerValue) (*engine.StepResult, error) {
	s.locks.lock(sessionID)
	defer s.locks.unlock(sessionID)

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	quiz, eng, err := s.loadEngine(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	result, err := eng.Answer(session, answer)
	if err != nil {
		return nil, s.mapEngineError(err)
	}

	if err := s.repo.Session().Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	if result.Completed() {
		s.logger.Info("Session completed",
			"session_id", sessionID,
			"quiz_id", session.QuizID,
			"answers", len(session.AnswerHistory))

		event := events.NewEvent(events.EventSessionCompleted, events.SessionCompletedEvent{
			SessionID:   sessionID,
			QuizID:      session.QuizID,
			QuizTitle:   quiz.Title,
			Scores:      result.Final.Scores,
			AnswerCount: len(session.AnswerHistory),
			CompletedAt: time.Now().UTC(),
		})
		if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish session.completed event", "session_id", sessionID, "error", err)
		}
	}

	return result, nil
}

func (s *sessionService) Results(ctx context.Context, sessionID string) (*models.FinalResult, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, eng, err := s.loadEngine(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	result, err := eng.Results(session)
	if err != nil {
		return nil, s.mapEngineError(err)
	}
	return result, nil
}

func (s *sessionService) ListByQuiz(ctx context.Context, quizID uint, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	sessions, total, err := s.repo.Session().ListByQuiz(ctx, quizID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

func (s *sessionService) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.repo.Session().Get(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *sessionService) loadEngine(ctx context.Context, quizID uint) (*models.Quiz, *engine.Engine, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}

	var definition models.QuizDefinition
	if err := json.Unmarshal(quiz.Definition, &definition); err != nil {
		return nil, nil, fmt.Errorf("stored quiz %d is corrupt: %w", quizID, err)
	}
	eng, err := engine.New(&definition)
	if err != nil {
		return nil, nil, fmt.Errorf("stored quiz %d is corrupt: %w", quizID, err)
	}
	return quiz, eng, nil
}

func (s *sessionService) mapEngineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrNoActiveSession):
		return ErrSessionNotActive
	case errors.Is(err, engine.ErrUnknownQuestion):
		return ErrUnknownQuestionID
	case errors.Is(err, engine.ErrQuizNotComplete):
		return ErrSessionNotEnded
	case errors.Is(err, engine.ErrIncompatibleAnswer):
		return fmt.Errorf("%w: %v", ErrInvalidAnswerValue, err)
	default:
		return err
	}
}
