package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMemory_RoundTrip(t *testing.T) {
	store := NewSessionMemory()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	session := &models.Session{
		ID:                "s-1",
		QuizID:            1,
		CurrentQuestionID: models.IntPtr(1),
		Scores:            map[string]float64{"correct": 0},
		AnswerHistory:     []models.AnswerRecord{},
	}
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	// Mutating the returned copy must not leak into the store.
	got.Scores["correct"] = 99
	again, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, again.Scores["correct"])
}

func TestSessionMemory_ListByQuiz(t *testing.T) {
	store := NewSessionMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.Session{ID: "a", QuizID: 1, CurrentQuestionID: models.IntPtr(1)}))
	require.NoError(t, store.Put(ctx, &models.Session{ID: "b", QuizID: 1}))
	require.NoError(t, store.Put(ctx, &models.Session{ID: "c", QuizID: 2}))

	all, total, err := store.ListByQuiz(ctx, 1, repositories.SessionFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	completed, total, err := store.ListByQuiz(ctx, 1, repositories.SessionFilters{CompletedOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, completed, 1)
	assert.Equal(t, "b", completed[0].ID)
}

func TestSessionMemory_ConcurrentDistinctSessions(t *testing.T) {
	store := NewSessionMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i)
			_ = store.Put(ctx, &models.Session{ID: id, QuizID: 1, Scores: map[string]float64{}})
			_, _ = store.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	_, total, err := store.ListByQuiz(ctx, 1, repositories.SessionFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 50, total)
}

func TestQuizMemory_CRUD(t *testing.T) {
	store := NewQuizMemory()
	ctx := context.Background()

	quiz := &models.Quiz{Title: "t", Status: models.QuizStatusDraft}
	require.NoError(t, store.Create(ctx, quiz))
	assert.NotZero(t, quiz.ID)

	got, err := store.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	got.Status = models.QuizStatusPublished
	require.NoError(t, store.Update(ctx, got))

	published := models.QuizStatusPublished
	list, total, err := store.List(ctx, repositories.QuizFilters{Status: &published})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, quiz.ID))
	_, err = store.GetByID(ctx, quiz.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
