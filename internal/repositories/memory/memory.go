// Package memory provides map-backed repositories for development and
// tests. Sessions are stored as deep copies so callers cannot observe
// each other's mutations except through Put.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
)

type memoryRepository struct {
	quizzes  *QuizMemory
	sessions *SessionMemory
}

func NewRepository() repositories.Repository {
	return &memoryRepository{
		quizzes:  NewQuizMemory(),
		sessions: NewSessionMemory(),
	}
}

func (r *memoryRepository) Quiz() repositories.QuizRepository       { return r.quizzes }
func (r *memoryRepository) Session() repositories.SessionRepository { return r.sessions }
func (r *memoryRepository) Ping(ctx context.Context) error          { return nil }
func (r *memoryRepository) Close() error                            { return nil }

// ===== QUIZZES =====

type QuizMemory struct {
	mu     sync.RWMutex
	nextID uint
	items  map[uint]*models.Quiz
}

func NewQuizMemory() *QuizMemory {
	return &QuizMemory{nextID: 1, items: make(map[uint]*models.Quiz)}
}

func (m *QuizMemory) Create(ctx context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quiz.ID == 0 {
		quiz.ID = m.nextID
		m.nextID++
	}
	if quiz.Version == 0 {
		quiz.Version = 1
	}
	now := time.Now().UTC()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	m.items[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (m *QuizMemory) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	quiz, ok := m.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneQuiz(quiz), nil
}

func (m *QuizMemory) Update(ctx context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[quiz.ID]; !ok {
		return repositories.ErrNotFound
	}
	quiz.UpdatedAt = time.Now().UTC()
	m.items[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (m *QuizMemory) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *QuizMemory) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Quiz
	for _, quiz := range m.items {
		if filters.Status != nil && quiz.Status != *filters.Status {
			continue
		}
		if filters.CreatedBy != nil && quiz.CreatedBy != *filters.CreatedBy {
			continue
		}
		matched = append(matched, cloneQuiz(quiz))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	matched = paginate(matched, filters.Offset, filters.Limit)
	return matched, total, nil
}

// ===== SESSIONS =====

// SessionMemory keeps sessions in a map guarded by one RWMutex. Combined
// with the service layer's keyed locks this satisfies the
// one-concurrent-mutator-per-session-id discipline.
type SessionMemory struct {
	mu    sync.RWMutex
	items map[string]*models.Session
}

func NewSessionMemory() *SessionMemory {
	return &SessionMemory{items: make(map[string]*models.Session)}
}

func (m *SessionMemory) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneSession(session), nil
}

func (m *SessionMemory) Put(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.items[session.ID]; ok {
		session.CreatedAt = existing.CreatedAt
	} else if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	m.items[session.ID] = cloneSession(session)
	return nil
}

func (m *SessionMemory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *SessionMemory) ListByQuiz(ctx context.Context, quizID uint, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Session
	for _, session := range m.items {
		if session.QuizID != quizID {
			continue
		}
		if filters.CompletedOnly && !session.Completed() {
			continue
		}
		matched = append(matched, cloneSession(session))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	matched = paginate(matched, filters.Offset, filters.Limit)
	return matched, total, nil
}

// ===== HELPERS =====

func cloneQuiz(quiz *models.Quiz) *models.Quiz {
	clone := *quiz
	clone.Definition = append([]byte(nil), quiz.Definition...)
	clone.Warnings = append([]byte(nil), quiz.Warnings...)
	return &clone
}

func cloneSession(session *models.Session) *models.Session {
	clone := *session
	if session.CurrentQuestionID != nil {
		id := *session.CurrentQuestionID
		clone.CurrentQuestionID = &id
	}
	clone.Scores = make(map[string]float64, len(session.Scores))
	for name, val := range session.Scores {
		clone.Scores[name] = val
	}
	// Round-trip the history so nested answer values are detached too.
	if session.AnswerHistory != nil {
		raw, _ := json.Marshal(session.AnswerHistory)
		clone.AnswerHistory = nil
		_ = json.Unmarshal(raw, &clone.AnswerHistory)
	}
	return &clone
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
